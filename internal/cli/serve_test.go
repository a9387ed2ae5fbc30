package cli

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/matzehuels/pglocktrace/pkg/frame"
	"github.com/matzehuels/pglocktrace/pkg/lockgraph"
	"github.com/matzehuels/pglocktrace/pkg/lockmode"
	"github.com/matzehuels/pglocktrace/pkg/observability"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rec := frame.NewRecorder(frame.DefaultMaxRun)
	g := lockgraph.NewGraph()
	g.SetQuery(4711, "SELECT 1")
	rec.Snapshot(g)
	g.AddObject("public.t1")
	g.SetEdge(4711, "public.t1", lockmode.Encode(lockmode.AccessShare))
	rec.Snapshot(g)

	srv := httptest.NewServer(newRouter(rec, newMetrics(), frame.HTMLOptions{Title: "test"}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestServeFrames(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/frames.json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var frames []frame.Frame
	if err := json.Unmarshal([]byte(body), &frames); err != nil {
		t.Fatalf("decode frames: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if frames[1].Index != 1 || frames[1].Edges != 1 {
		t.Errorf("frames[1] = %+v, want index 1 with one edge", frames[1])
	}
}

func TestServePage(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/")
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	for _, want := range []string{"<title>test</title>", "d3-graphviz"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestServeMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	resp, _ = get(t, srv.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", resp.StatusCode)
	}
}

func TestBackgroundStopWaits(t *testing.T) {
	var finished atomic.Bool
	started := make(chan struct{})

	stop := background(context.Background(), func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		finished.Store(true)
	})
	<-started
	stop()

	if !finished.Load() {
		t.Error("stop returned before the goroutine finished")
	}
}

func TestRunServeListenError(t *testing.T) {
	t.Cleanup(observability.Reset)
	c, ctx := newTestCLI(t)

	err := c.runServe(ctx, &serveOpts{
		sourceOpts: sourceOpts{input: testLog},
		addr:       "localhost:-1",
	})
	if err == nil || !strings.Contains(err.Error(), "serve:") {
		t.Errorf("runServe error = %v, want listen failure", err)
	}
}
