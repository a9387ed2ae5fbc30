package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pglocktrace/pkg/archive"
	pgerrors "github.com/matzehuels/pglocktrace/pkg/errors"
)

const testLog = "testdata/events.jsonl"

func newTestCLI(t *testing.T) (*CLI, context.Context) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	var buf strings.Builder
	c := New(&buf, log.DebugLevel)
	c.Stdout = io.Discard
	return c, withLogger(context.Background(), c.Logger)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunTrace(t *testing.T) {
	c, ctx := newTestCLI(t)
	var stdout strings.Builder
	c.Stdout = &stdout
	dir := t.TempDir()
	out := filepath.Join(dir, "trace.txt")
	html := filepath.Join(dir, "locks.html")

	err := c.runTrace(ctx, &traceOpts{
		sourceOpts: sourceOpts{input: testLog},
		output:     out,
		statistics: true,
		graphHTML:  html,
	})
	if err != nil {
		t.Fatalf("runTrace error: %v", err)
	}

	got := readFile(t, out)
	for _, want := range []string{
		"10 [Pid 4711] Query begin 'UPDATE sensor_data SET value = 1'",
		"95 [Pid 4711] Lock was acquired in 75 ns",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	// Statistics go to stdout, not into the event file.
	if strings.Contains(got, "Lock statistics:") {
		t.Errorf("statistics written to the event file:\n%s", got)
	}
	for _, want := range []string{"Lock statistics:", "public.sensor_data", "RowExclusiveLock"} {
		if !strings.Contains(stdout.String(), want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout.String())
		}
	}

	page := readFile(t, html)
	if n := strings.Count(page, "digraph"); n != 6 {
		t.Errorf("animation has %d frames, want 6", n)
	}
}

func TestRunTraceFilters(t *testing.T) {
	c, ctx := newTestCLI(t)
	out := filepath.Join(t.TempDir(), "trace.jsonl")

	err := c.runTrace(ctx, &traceOpts{
		sourceOpts: sourceOpts{input: testLog, pids: []int{4712}, groups: []string{"query"}},
		output:     out,
		json:       true,
	})
	if err != nil {
		t.Fatalf("runTrace error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(readFile(t, out)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	for _, l := range lines {
		if !strings.Contains(l, `"pid":4712`) {
			t.Errorf("line from unexpected pid: %s", l)
		}
	}
}

func TestRunTraceValidation(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "exists.txt")
	if err := os.WriteFile(existing, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		opts traceOpts
		code pgerrors.Code
	}{
		{
			name: "missing input",
			opts: traceOpts{sourceOpts: sourceOpts{input: "testdata/missing.jsonl"}},
			code: pgerrors.ErrCodeFileNotFound,
		},
		{
			name: "existing output",
			opts: traceOpts{sourceOpts: sourceOpts{input: testLog}, output: existing},
			code: pgerrors.ErrCodeFileExists,
		},
		{
			name: "existing graph",
			opts: traceOpts{sourceOpts: sourceOpts{input: testLog}, graphHTML: existing},
			code: pgerrors.ErrCodeFileExists,
		},
		{
			name: "unknown group",
			opts: traceOpts{sourceOpts: sourceOpts{input: testLog, groups: []string{"NETWORK"}}},
			code: pgerrors.ErrCodeInvalidInput,
		},
		{
			name: "malformed resolver",
			opts: traceOpts{sourceOpts: sourceOpts{input: testLog, resolvers: []string{"postgres://localhost/app"}}},
			code: pgerrors.ErrCodeInvalidResolver,
		},
		{
			name: "resolver for untraced pid",
			opts: traceOpts{sourceOpts: sourceOpts{input: testLog, pids: []int{1}, resolvers: []string{"2:postgres://localhost/app"}}},
			code: pgerrors.ErrCodeInvalidResolver,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ctx := newTestCLI(t)
			err := c.runTrace(ctx, &tt.opts)
			if !pgerrors.Is(err, tt.code) {
				t.Errorf("runTrace error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestRunTraceIgnoresConfiguredResolverOfUntracedPid(t *testing.T) {
	c, ctx := newTestCLI(t)
	c.config.Resolvers = map[string]string{"1234": "postgres://localhost/app"}

	err := c.runTrace(ctx, &traceOpts{
		sourceOpts: sourceOpts{input: testLog, pids: []int{4712}},
		output:     filepath.Join(t.TempDir(), "trace.txt"),
	})
	if err != nil {
		t.Fatalf("runTrace error: %v", err)
	}
}

func TestRunTraceForce(t *testing.T) {
	c, ctx := newTestCLI(t)
	out := filepath.Join(t.TempDir(), "trace.txt")
	if err := os.WriteFile(out, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.runTrace(ctx, &traceOpts{sourceOpts: sourceOpts{input: testLog}, output: out, force: true}); err != nil {
		t.Fatalf("runTrace error: %v", err)
	}
	if got := readFile(t, out); strings.HasPrefix(got, "old") {
		t.Error("output was not overwritten")
	}
}

func TestRunTraceArchive(t *testing.T) {
	c, ctx := newTestCLI(t)
	dir := t.TempDir()
	c.config.Archive.Dir = dir

	err := c.runTrace(ctx, &traceOpts{
		sourceOpts: sourceOpts{input: testLog},
		output:     filepath.Join(t.TempDir(), "trace.txt"),
		archive:    true,
	})
	if err != nil {
		t.Fatalf("runTrace error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("archive has %d entries, want 1", len(entries))
	}

	store, err := archive.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := store.Load(strings.TrimSuffix(entries[0].Name(), ".json"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if sum.Processed != 10 {
		t.Errorf("Processed = %d, want 10", sum.Processed)
	}
	if sum.Frames != 6 {
		t.Errorf("Frames = %d, want 6", sum.Frames)
	}
	if sum.Source != testLog {
		t.Errorf("Source = %q, want %q", sum.Source, testLog)
	}
}

func TestTraceCommandUsesConfig(t *testing.T) {
	c, _ := newTestCLI(t)
	var stdout strings.Builder
	c.Stdout = &stdout
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfg, []byte("[trace]\nstatistics = true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "trace.txt")

	root := c.RootCommand()
	root.SetArgs([]string{"trace", "--config", cfg, "-i", testLog, "-o", out})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !strings.Contains(stdout.String(), "Lock statistics:") {
		t.Error("statistics from config were not printed")
	}
}
