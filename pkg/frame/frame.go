package frame

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/pglocktrace/pkg/label"
	"github.com/matzehuels/pglocktrace/pkg/lockgraph"
)

const (
	// GraphName is the name of every emitted digraph.
	GraphName = "lock-graph"

	// DefaultMaxRun is the default object label wrap width.
	DefaultMaxRun = label.DefaultMaxRun
)

// Frame is one snapshot of the lock graph.
type Frame struct {
	Index    int     `json:"index"`
	Vertices int     `json:"vertices"`
	Edges    int     `json:"edges"`
	MinDist  float64 `json:"mindist"`
	DOT      string  `json:"dot"`
}

// MinDist returns the circo mindist attribute for a graph with the given
// number of vertices.
func MinDist(vertices int) float64 {
	switch {
	case vertices > 15:
		return 0.2
	case vertices > 10:
		return 0.4
	case vertices > 6:
		return 0.75
	case vertices > 4:
		return 1.0
	default:
		return 1.7
	}
}

// QueryID returns the DOT node id of the query vertex of pid.
func QueryID(pid int) string { return "query_" + strconv.Itoa(pid) }

// ObjectID returns the quoted DOT node id of the object vertex name. Object
// ids live under an "obj:" prefix so that no relation name can collide with
// a query id.
func ObjectID(name string) string { return quote("obj:" + name) }

// Snapshot describes g as a DOT digraph. Object labels are wrapped after
// maxRun characters; a maxRun of zero uses [label.DefaultMaxRun].
func Snapshot(g *lockgraph.Graph, maxRun int) Frame {
	if maxRun <= 0 {
		maxRun = label.DefaultMaxRun
	}
	n := g.VertexCount()
	mindist := MinDist(n)

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", quote(GraphName))
	fmt.Fprintf(&b, "\tgraph [mindist=%s]\n", formatFloat(mindist))
	for _, q := range g.Queries() {
		fmt.Fprintf(&b, "\t%s [label=%s fillcolor=gray style=filled]\n", QueryID(q.Pid), quote(q.Text))
	}
	for _, o := range g.Objects() {
		fmt.Fprintf(&b, "\t%s [label=%s fillcolor=lightgray shape=box style=filled]\n",
			ObjectID(o), quote(label.Wrap(o, maxRun)))
	}
	for _, e := range g.Edges() {
		fmt.Fprintf(&b, "\t%s -> %s [label=%s]\n", QueryID(e.Pid), ObjectID(e.Object), quote(e.Modes.String()))
	}
	b.WriteString("}\n")

	return Frame{Vertices: n, Edges: g.EdgeCount(), MinDist: mindist, DOT: b.String()}
}

// quote renders s as a DOT double-quoted string. Newlines become the \n
// escape, which Graphviz draws as a centered line break.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Recorder collects a frame per snapshot. It implements
// [lockgraph.Snapshotter] and may be read while a session writes to it.
type Recorder struct {
	MaxRun int

	mu     sync.RWMutex
	frames []Frame
}

// NewRecorder returns an empty recorder wrapping object labels after maxRun
// characters.
func NewRecorder(maxRun int) *Recorder {
	return &Recorder{MaxRun: maxRun}
}

// Snapshot appends a frame of g.
func (r *Recorder) Snapshot(g *lockgraph.Graph) {
	f := Snapshot(g, r.MaxRun)
	r.mu.Lock()
	defer r.mu.Unlock()
	f.Index = len(r.frames)
	r.frames = append(r.frames, f)
}

// Frames returns a copy of the frames recorded so far, in emission order.
func (r *Recorder) Frames() []Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Len returns the number of recorded frames.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.frames)
}

// DOTs returns the DOT text of each frame.
func DOTs(frames []Frame) []string {
	out := make([]string, len(frames))
	for i, f := range frames {
		out[i] = f.DOT
	}
	return out
}
