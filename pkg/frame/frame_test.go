package frame

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/pglocktrace/pkg/lockgraph"
	"github.com/matzehuels/pglocktrace/pkg/lockmode"
)

func TestMinDist(t *testing.T) {
	tests := []struct {
		vertices int
		want     float64
	}{
		{0, 1.7},
		{4, 1.7},
		{5, 1.0},
		{6, 1.0},
		{7, 0.75},
		{10, 0.75},
		{11, 0.4},
		{15, 0.4},
		{16, 0.2},
		{100, 0.2},
	}
	for _, tt := range tests {
		if got := MinDist(tt.vertices); got != tt.want {
			t.Errorf("MinDist(%d) = %v, want %v", tt.vertices, got, tt.want)
		}
	}
}

func sampleGraph() *lockgraph.Graph {
	g := lockgraph.NewGraph()
	g.SetQuery(171379, "select count(*) from sensor_data;")
	g.AddObject("public.sensor_data")
	g.SetEdge(171379, "public.sensor_data", lockmode.Encode(lockmode.RowExclusive, lockmode.AccessShare))
	return g
}

func TestSnapshot(t *testing.T) {
	f := Snapshot(sampleGraph(), 0)

	want := `digraph "lock-graph" {
	graph [mindist=1.7]
	query_171379 [label="select count(*) from sensor_data;" fillcolor=gray style=filled]
	"obj:public.sensor_data" [label="public.sensor_data" fillcolor=lightgray shape=box style=filled]
	query_171379 -> "obj:public.sensor_data" [label="AccessShareLock,RowExclusiveLock"]
}
`
	if f.DOT != want {
		t.Errorf("DOT =\n%s\nwant\n%s", f.DOT, want)
	}
	if f.Vertices != 2 || f.Edges != 1 || f.MinDist != 1.7 {
		t.Errorf("frame = %+v", f)
	}
}

func TestSnapshotWrapsObjectLabels(t *testing.T) {
	g := lockgraph.NewGraph()
	g.AddObject("public.some_very_long_table_name_here")
	f := Snapshot(g, 20)
	if !strings.Contains(f.DOT, `[label="public.some_very_long_\ntable_name_here"`) {
		t.Errorf("label not wrapped:\n%s", f.DOT)
	}
	// The node id keeps the unwrapped name.
	if !strings.Contains(f.DOT, "\t\"obj:public.some_very_long_table_name_here\" [") {
		t.Errorf("node id changed:\n%s", f.DOT)
	}
}

func TestSnapshotObjectNamedLikeQuery(t *testing.T) {
	g := lockgraph.NewGraph()
	g.SetQuery(1, "SELECT * FROM query_1")
	g.AddObject("query_1")
	g.SetEdge(1, "query_1", lockmode.Encode(lockmode.AccessShare))

	f := Snapshot(g, 0)
	for _, want := range []string{
		"\tquery_1 [label=\"SELECT * FROM query_1\"",
		"\t\"obj:query_1\" [label=\"query_1\" fillcolor=lightgray",
		"\tquery_1 -> \"obj:query_1\" [",
	} {
		if !strings.Contains(f.DOT, want) {
			t.Errorf("DOT missing %q:\n%s", want, f.DOT)
		}
	}
	// Two node statements, one per vertex.
	if n := strings.Count(f.DOT, "style=filled]"); n != 2 {
		t.Errorf("node statements = %d, want 2:\n%s", n, f.DOT)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
		{"two\nlines\r\n", `"two\nlines\n"`},
	}
	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(0)
	m := lockgraph.NewMachine(r, nil)
	ctx := context.Background()

	m.OnQueryBegin(ctx, 1, "SELECT 1")
	if err := m.OnGrant(ctx, 1, "t1", lockmode.AccessShare); err != nil {
		t.Fatal(err)
	}
	if err := m.OnUngrant(ctx, 1, "t1", lockmode.AccessShare); err != nil {
		t.Fatal(err)
	}

	frames := r.Frames()
	if len(frames) != 3 || r.Len() != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d Index = %d", i, f.Index)
		}
	}
	if !strings.Contains(frames[1].DOT, "query_1 -> \"obj:t1\"") {
		t.Errorf("frame 1 lacks edge:\n%s", frames[1].DOT)
	}
	if strings.Contains(frames[2].DOT, `"obj:t1"`) {
		t.Errorf("frame 2 still has t1:\n%s", frames[2].DOT)
	}
}

func TestWriteHTML(t *testing.T) {
	frames := []Frame{Snapshot(sampleGraph(), 0)}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, frames, HTMLOptions{Delay: 250 * time.Millisecond}); err != nil {
		t.Fatalf("WriteHTML error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"var dots = [",
		"lock-graph",
		"query_171379",
		"250",
		"1500",
		`.engine("circo")`,
		"<title>Lock graph</title>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
}
