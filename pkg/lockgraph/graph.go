package lockgraph

import (
	"slices"

	"github.com/matzehuels/pglocktrace/pkg/lockmode"
)

// Query is a query vertex.
type Query struct {
	Pid  int    // backend process id, the vertex key
	Text string // query text, used as label
}

// Edge connects the query of Pid to the object vertex named Object.
type Edge struct {
	Pid    int
	Object string
	Modes  lockmode.Set // held modes, never empty while the edge exists
}

type edgeKey struct {
	pid    int
	object string
}

// Graph is the lock graph. The zero value is not usable; use [NewGraph].
// Graph is not safe for concurrent use.
type Graph struct {
	queries []*Query
	byPid   map[int]*Query
	objects []string
	degree  map[string]int // object name -> incident edge count
	edges   []*Edge
	byPair  map[edgeKey]*Edge
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		byPid:  make(map[int]*Query),
		degree: make(map[string]int),
		byPair: make(map[edgeKey]*Edge),
	}
}

// SetQuery adds the query vertex for pid, or relabels it if present.
// It reports whether a vertex was added.
func (g *Graph) SetQuery(pid int, text string) bool {
	if q, ok := g.byPid[pid]; ok {
		q.Text = text
		return false
	}
	q := &Query{Pid: pid, Text: text}
	g.queries = append(g.queries, q)
	g.byPid[pid] = q
	return true
}

// Query returns the query vertex of pid.
func (g *Graph) Query(pid int) (Query, bool) {
	q, ok := g.byPid[pid]
	if !ok {
		return Query{}, false
	}
	return *q, true
}

// AddObject adds an object vertex unless one with the same name exists.
// It reports whether a vertex was added.
func (g *Graph) AddObject(name string) bool {
	if _, ok := g.degree[name]; ok {
		return false
	}
	g.objects = append(g.objects, name)
	g.degree[name] = 0
	return true
}

// HasObject reports whether an object vertex named name exists.
func (g *Graph) HasObject(name string) bool {
	_, ok := g.degree[name]
	return ok
}

// Degree returns the number of edges incident to the object vertex.
func (g *Graph) Degree(name string) int { return g.degree[name] }

// RemoveObject deletes the object vertex and its edges.
func (g *Graph) RemoveObject(name string) {
	if _, ok := g.degree[name]; !ok {
		return
	}
	g.edges = slices.DeleteFunc(g.edges, func(e *Edge) bool {
		if e.Object != name {
			return false
		}
		delete(g.byPair, edgeKey{e.Pid, e.Object})
		return true
	})
	g.objects = slices.DeleteFunc(g.objects, func(o string) bool { return o == name })
	delete(g.degree, name)
}

// Edge returns the edge between the query of pid and object.
func (g *Graph) Edge(pid int, object string) (Edge, bool) {
	e, ok := g.byPair[edgeKey{pid, object}]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// SetEdge creates or overwrites the edge between pid and object. Both
// vertices must exist. An empty set deletes the edge.
func (g *Graph) SetEdge(pid int, object string, modes lockmode.Set) {
	key := edgeKey{pid, object}
	e, ok := g.byPair[key]
	switch {
	case modes.Empty() && ok:
		g.edges = slices.DeleteFunc(g.edges, func(x *Edge) bool { return x == e })
		delete(g.byPair, key)
		g.degree[object]--
	case modes.Empty():
	case ok:
		e.Modes = modes
	default:
		e = &Edge{Pid: pid, Object: object, Modes: modes}
		g.edges = append(g.edges, e)
		g.byPair[key] = e
		g.degree[object]++
	}
}

// Queries returns the query vertices in insertion order.
func (g *Graph) Queries() []Query {
	out := make([]Query, len(g.queries))
	for i, q := range g.queries {
		out[i] = *q
	}
	return out
}

// Objects returns the object vertex names in insertion order.
func (g *Graph) Objects() []string { return slices.Clone(g.objects) }

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	for i, e := range g.edges {
		out[i] = *e
	}
	return out
}

// VertexCount returns the number of query and object vertices.
func (g *Graph) VertexCount() int { return len(g.queries) + len(g.objects) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }
