package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/lockgraph"
	"github.com/matzehuels/pglocktrace/pkg/lockmode"
	"github.com/matzehuels/pglocktrace/pkg/stats"
	"github.com/matzehuels/pglocktrace/pkg/trace"
)

func sampleSummary() trace.Summary {
	return trace.Summary{
		ID:        "0b7c6f2e-7d7e-4f55-9c36-1f1d3b8e0a11",
		Source:    "trace.json",
		Started:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Ended:     time.Date(2024, 5, 1, 12, 0, 5, 0, time.UTC),
		Processed: 12,
		Statistics: stats.Report{
			Objects: []stats.ObjectRow{{Object: "public.t1", Requests: 2, WaitNanos: 150}},
			Modes:   []stats.ModeRow{{Mode: "AccessShareLock", Requests: 2}},
		},
		Frames:      4,
		Diagnostics: []lockgraph.Diagnostic{{Pid: 1, Object: "public.t1", Mode: lockmode.Share}},
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore error: %v", err)
	}
	defer fs.Close(ctx)

	want := sampleSummary()
	if err := fs.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := fs.Load(want.ID)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.ID != want.ID || got.Frames != 4 || !got.Started.Equal(want.Started) {
		t.Errorf("Load = %+v", got)
	}
	if len(got.Statistics.Objects) != 1 || got.Statistics.Objects[0].WaitNanos != 150 {
		t.Errorf("statistics = %+v", got.Statistics)
	}
	if len(got.Diagnostics) != 1 || got.Diagnostics[0].Mode != lockmode.Share {
		t.Errorf("diagnostics = %+v", got.Diagnostics)
	}
}

func TestFileStoreMissing(t *testing.T) {
	fs, _ := NewFileStore(t.TempDir())
	if _, err := fs.Load("nope"); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("PGLOCKTRACE_TEST_MONGO")
	if uri == "" {
		t.Skip("PGLOCKTRACE_TEST_MONGO not set")
	}
	ctx := context.Background()
	ms, err := NewMongoStore(ctx, uri, "pglocktrace_test", "sessions")
	if err != nil {
		t.Fatalf("NewMongoStore error: %v", err)
	}
	defer ms.Close(ctx)

	want := sampleSummary()
	if err := ms.Save(ctx, want); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := ms.Load(ctx, want.ID)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Processed != want.Processed || got.Frames != want.Frames {
		t.Errorf("Load = %+v", got)
	}
}
