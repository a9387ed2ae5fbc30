package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/event"
	"github.com/matzehuels/pglocktrace/pkg/lockgraph"
	"github.com/matzehuels/pglocktrace/pkg/lockmode"
	"github.com/matzehuels/pglocktrace/pkg/oid"
)

const sampleLog = `{"timestamp": 10, "pid": 1, "event": "QUERY_BEGIN", "query": "SELECT * FROM t1"}
{"timestamp": 20, "pid": 1, "event": "LOCK_RELATION_OID", "lock_type": "AccessShareLock", "oid": 16384}
{"timestamp": 95, "pid": 1, "event": "LOCK_RELATION_OID_END"}
{"timestamp": 96, "pid": 1, "event": "LOCK_GRANTED_LOCAL", "lock_type": "AccessShareLock", "oid": 16384, "lock_local_hold": 0}
{"timestamp": 97, "pid": 2, "event": "LOCK_GRANTED_LOCAL", "lock_type": "RowExclusiveLock", "table": "public.t9"}
{"timestamp": 98, "pid": 3, "event": "DEADLOCK"}
{"timestamp": 99, "pid": 1, "event": "LOCK_UNGRANTED_LOCAL", "lock_type": "AccessShareLock", "oid": 16384}
{"timestamp": 100, "pid": 1, "event": "QUERY_END"}
`

func TestSessionRun(t *testing.T) {
	var out bytes.Buffer
	m := lockgraph.NewMachine(nil, nil)
	s := NewSession(Options{
		Pids:      []int{1},
		Resolvers: map[int]oid.Resolver{1: oid.Static{16384: "public.t1"}},
		Output:    &out,
		Graph:     m,
	})

	if err := s.Run(context.Background(), event.NewReader(strings.NewReader(sampleLog))); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// pid 2 is filtered, the global DEADLOCK of pid 3 is not.
	if s.Processed() != 7 || s.Skipped() != 1 {
		t.Errorf("processed %d, skipped %d; want 7, 1", s.Processed(), s.Skipped())
	}

	e := s.Stats().Entry("public.t1")
	if e == nil || e.LockCount != 1 || e.WaitNanos != 75 {
		t.Errorf("statistics for public.t1 = %+v", e)
	}

	text := out.String()
	for _, want := range []string{
		"20 [Pid 1] Lock object 16384 (public.t1) AccessShareLock",
		"95 [Pid 1] Lock was acquired in 75 ns",
		"98 [Pid 3] DEADLOCK DETECTED",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "public.t9") {
		t.Error("filtered pid was printed")
	}

	// query begin, new edge, ungrant
	if m.Snapshots() != 3 {
		t.Errorf("Snapshots() = %d, want 3", m.Snapshots())
	}
	if m.Graph.HasObject("public.t1") {
		t.Error("object should be removed after its last ungrant")
	}

	sum := s.Summary()
	if sum.ID != s.ID.String() || sum.Frames != 3 || sum.Processed != 7 {
		t.Errorf("Summary() = %+v", sum)
	}
}

func TestSessionGroupFilter(t *testing.T) {
	s := NewSession(Options{Groups: []event.Group{event.GroupQuery}})
	ctx := context.Background()

	events := []event.Event{
		&event.Query{Header: event.Header{Kind: event.QueryBegin, Pid: 1}, Text: "SELECT 1"},
		&event.Marker{Header: event.Header{Kind: event.TransactionBegin, Pid: 1}},
		&event.Grant{Header: event.Header{Kind: event.LockGrantedLocal, Pid: 1}, Object: event.Object{Name: "t"}, Mode: lockmode.AccessShare},
	}
	for _, ev := range events {
		if err := s.Process(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	if s.Processed() != 1 || s.Skipped() != 2 {
		t.Errorf("processed %d, skipped %d; want 1, 2", s.Processed(), s.Skipped())
	}
}

func TestSessionOrphanIsNotFatal(t *testing.T) {
	m := lockgraph.NewMachine(nil, nil)
	s := NewSession(Options{Graph: m})
	ev := &event.Grant{Header: event.Header{Kind: event.LockUngrantedLocal, Pid: 1}, Object: event.Object{Name: "t"}, Mode: lockmode.Share}
	if err := s.Process(context.Background(), ev); err != nil {
		t.Errorf("Process error = %v, want nil", err)
	}
	if len(s.Summary().Diagnostics) != 1 {
		t.Errorf("Diagnostics = %+v", s.Summary().Diagnostics)
	}
}

func TestSessionUnknownKind(t *testing.T) {
	s := NewSession(Options{})
	err := s.Process(context.Background(), &event.Marker{Header: event.Header{Kind: event.Kind(500)}})
	if !errors.Is(err, errors.ErrCodeUnsupportedEventKind) {
		t.Errorf("Process error = %v, want UNSUPPORTED_EVENT_KIND", err)
	}
}

func TestSessionRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSession(Options{})
	src := event.FromSlice(&event.Marker{Header: event.Header{Kind: event.TransactionBegin}})
	if err := s.Run(ctx, src); err != context.Canceled {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestSessionKeepsResolvedNames(t *testing.T) {
	var out bytes.Buffer
	s := NewSession(Options{
		Resolvers: map[int]oid.Resolver{1: oid.Static{}},
		Output:    &out,
		Formatter: JSON{},
	})
	ev := &event.Grant{Header: event.Header{Kind: event.LockGrantedLocal, Pid: 1}, Object: event.Object{OID: 7, Name: "app.t"}, Mode: lockmode.AccessShare}
	if err := s.Process(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"table":"app.t"`) {
		t.Errorf("output = %s", out.String())
	}
}
