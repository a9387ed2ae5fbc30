package lockgraph

import (
	"slices"
	"testing"

	"github.com/matzehuels/pglocktrace/pkg/lockmode"
)

func TestGraphOrder(t *testing.T) {
	g := NewGraph()
	g.SetQuery(2, "b")
	g.SetQuery(1, "a")
	g.AddObject("z")
	g.AddObject("y")
	g.AddObject("z")
	g.SetEdge(1, "y", lockmode.Encode(lockmode.AccessShare))
	g.SetEdge(2, "z", lockmode.Encode(lockmode.Exclusive))

	if got := []int{g.Queries()[0].Pid, g.Queries()[1].Pid}; !slices.Equal(got, []int{2, 1}) {
		t.Errorf("query order = %v, want [2 1]", got)
	}
	if got := g.Objects(); !slices.Equal(got, []string{"z", "y"}) {
		t.Errorf("Objects() = %v, want [z y]", got)
	}
	if got := g.Edges(); got[0].Object != "y" || got[1].Object != "z" {
		t.Errorf("Edges() = %+v", got)
	}
	if g.VertexCount() != 4 {
		t.Errorf("VertexCount() = %d, want 4", g.VertexCount())
	}
}

func TestGraphRemoveObject(t *testing.T) {
	g := NewGraph()
	g.SetQuery(1, "q")
	g.AddObject("t")
	g.SetEdge(1, "t", lockmode.Encode(lockmode.AccessShare))
	g.RemoveObject("t")

	if g.HasObject("t") || g.EdgeCount() != 0 {
		t.Errorf("object or edge survived: %v %v", g.Objects(), g.Edges())
	}
	if _, ok := g.Edge(1, "t"); ok {
		t.Error("edge index not cleaned")
	}
}

func TestGraphEmptySetDeletesEdge(t *testing.T) {
	g := NewGraph()
	g.SetQuery(1, "q")
	g.AddObject("t")
	g.SetEdge(1, "t", lockmode.Encode(lockmode.AccessShare))
	g.SetEdge(1, "t", 0)
	if g.EdgeCount() != 0 || g.Degree("t") != 0 {
		t.Errorf("EdgeCount() = %d, Degree() = %d", g.EdgeCount(), g.Degree("t"))
	}
	// Deleting a missing edge is a no-op.
	g.SetEdge(1, "t", 0)
	if g.Degree("t") != 0 {
		t.Errorf("Degree() = %d, want 0", g.Degree("t"))
	}
}
