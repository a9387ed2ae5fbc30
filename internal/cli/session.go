package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pglocktrace/pkg/buildinfo"
	"github.com/matzehuels/pglocktrace/pkg/cache"
	pgerrors "github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/event"
	"github.com/matzehuels/pglocktrace/pkg/frame"
	"github.com/matzehuels/pglocktrace/pkg/lockgraph"
	"github.com/matzehuels/pglocktrace/pkg/oid"
	"github.com/matzehuels/pglocktrace/pkg/trace"
)

// =============================================================================
// Shared Session Flags
// =============================================================================

// sourceOpts holds the flags every command that reads an event log shares.
type sourceOpts struct {
	input     string   // event log path
	follow    bool     // keep reading as the log grows
	pids      []int    // backends to trace, empty for all
	groups    []string // event groups to keep, empty for all
	resolvers []string // PID:URL database URLs for OID resolution
	noCache   bool     // bypass the OID name cache
}

func (o *sourceOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.input, "input", "i", "", "event log written by the tracer (JSON lines)")
	cmd.Flags().IntSliceVarP(&o.pids, "pid", "p", nil, "trace only these backend pids (comma-separated)")
	cmd.Flags().StringSliceVarP(&o.groups, "type", "t", nil, "event groups to keep: "+strings.Join(event.GroupNames(), ", "))
	cmd.Flags().StringArrayVarP(&o.resolvers, "resolver", "r", nil, "resolve OIDs of PID against a database, as PID:URL (repeatable)")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable the OID name cache")
	_ = cmd.MarkFlagRequired("input")
	registerLogCompletions(cmd)
}

// =============================================================================
// Tracer
// =============================================================================

// tracer bundles a session with its event source and the resources opened
// for it.
type tracer struct {
	session  *trace.Session
	source   event.Source
	recorder *frame.Recorder // nil unless a lock graph was requested
	closers  []func(context.Context) error
}

// tracerConfig carries the per-command parts of a session.
type tracerConfig struct {
	formatter trace.Formatter
	output    io.Writer
	graph     bool // record lock graph frames
	maxRun    int
}

// openTracer validates the source flags, connects resolvers, and opens the
// event log. The caller must close the returned tracer.
func (c *CLI) openTracer(ctx context.Context, o sourceOpts, tc tracerConfig) (*tracer, error) {
	logger := loggerFromContext(ctx)

	if err := checkInput(o.input); err != nil {
		return nil, err
	}
	groups, err := parseGroups(o.groups)
	if err != nil {
		return nil, err
	}
	for _, pid := range o.pids {
		if pid <= 0 {
			return nil, pgerrors.New(pgerrors.ErrCodeInvalidInput, "invalid pid %d", pid)
		}
	}

	t := &tracer{}

	resolvers, err := c.connectResolvers(ctx, o, t)
	if err != nil {
		t.close(ctx)
		return nil, err
	}

	var machine *lockgraph.Machine
	if tc.graph {
		t.recorder = frame.NewRecorder(tc.maxRun)
		machine = lockgraph.NewMachine(t.recorder, logger)
	}

	if o.follow {
		fl, err := event.Follow(o.input)
		if err != nil {
			t.close(ctx)
			return nil, err
		}
		t.source = fl
		t.closers = append(t.closers, func(context.Context) error { return fl.Close() })
	} else {
		f, err := os.Open(o.input)
		if err != nil {
			t.close(ctx)
			return nil, fmt.Errorf("open %s: %w", o.input, err)
		}
		t.source = event.NewReader(f)
		t.closers = append(t.closers, func(context.Context) error { return f.Close() })
	}

	t.session = trace.NewSession(trace.Options{
		Pids:      o.pids,
		Groups:    groups,
		Resolvers: resolvers,
		Formatter: tc.formatter,
		Output:    tc.output,
		Graph:     machine,
		Source:    o.input,
		Logger:    logger,
	})
	logger.Debug("session started", "id", t.session.ID, "input", o.input, "follow", o.follow)
	return t, nil
}

// connectResolvers opens one catalog per resolver. Connections are added
// to t's closers as they are made.
func (c *CLI) connectResolvers(ctx context.Context, o sourceOpts, t *tracer) (map[int]oid.Resolver, error) {
	specs, err := oid.ParseSpecs(c.config.resolverSpecs(o.resolvers, o.pids), o.pids)
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, nil
	}

	nameCache, err := c.newCache(ctx, o.noCache)
	if err != nil {
		return nil, err
	}
	t.closers = append(t.closers, func(context.Context) error { return nameCache.Close() })

	var keyer cache.Keyer
	if p := c.config.Cache.KeyPrefix; p != "" {
		keyer = cache.NewScopedKeyer(nil, p)
	}

	logger := loggerFromContext(ctx)
	spinner := newSpinner(ctx, os.Stderr, "Connecting to databases", len(specs))
	spinner.Start()
	defer spinner.Stop()

	resolvers := make(map[int]oid.Resolver, len(specs))
	relations := 0
	for _, spec := range specs {
		cat, err := oid.Connect(ctx, spec.URL, oid.CatalogOptions{
			Cache:  nameCache,
			Keyer:  keyer,
			TTL:    c.config.Cache.TTL.Duration,
			Logger: logger,

			ApplicationName: buildinfo.ApplicationName(),
		})
		if err != nil {
			spinner.Fail("Database connect failed")
			return nil, err
		}
		t.closers = append(t.closers, cat.Close)
		resolvers[spec.Pid] = cat
		relations += cat.Len()
		spinner.Advance()
		logger.Debug("resolver ready", "pid", spec.Pid, "relations", cat.Len())
	}
	spinner.Succeed(fmt.Sprintf("Resolving OIDs for %d pid(s), %d relations known", len(resolvers), relations))
	return resolvers, nil
}

// run processes the whole source. ctx cancellation stops it early; the
// session keeps everything seen so far.
func (t *tracer) run(ctx context.Context) error {
	return t.session.Run(ctx, t.source)
}

// frames returns the recorded frames, or nil without a lock graph.
func (t *tracer) frames() []frame.Frame {
	if t.recorder == nil {
		return nil
	}
	return t.recorder.Frames()
}

// close releases resources in reverse order of acquisition.
func (t *tracer) close(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	logger := loggerFromContext(ctx)
	for i := len(t.closers) - 1; i >= 0; i-- {
		if err := t.closers[i](ctx); err != nil {
			logger.Warn("close", "error", err)
		}
	}
	t.closers = nil
}

// printCounts summarises the session on stderr.
func (t *tracer) printCounts() {
	s := t.session
	var frames, orphans int
	if m := s.Graph(); m != nil {
		frames = m.Snapshots()
		orphans = len(m.Diagnostics())
	}
	printCounts(s.Processed(), s.Skipped(), frames, orphans)
}

// =============================================================================
// Validation
// =============================================================================

// checkInput requires path to name an existing file.
func checkInput(path string) error {
	if err := pgerrors.ValidateFilePath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return pgerrors.New(pgerrors.ErrCodeFileNotFound, "input file does not exist %s", path)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return pgerrors.New(pgerrors.ErrCodeInvalidPath, "input is a directory %s", path)
	}
	return nil
}

// checkOutput refuses to overwrite path unless force is set.
func checkOutput(path string, force bool) error {
	if err := pgerrors.ValidateFilePath(path); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return pgerrors.New(pgerrors.ErrCodeFileExists, "output file already exists %s (use --force to overwrite)", path)
	}
	return nil
}

// createOutput opens path for writing, or returns stdout for an empty path.
func createOutput(path string, force bool, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	if err := checkOutput(path, force); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func parseGroups(names []string) ([]event.Group, error) {
	groups := make([]event.Group, 0, len(names))
	for _, n := range names {
		g, err := event.ParseGroup(strings.ToUpper(strings.TrimSpace(n)))
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}
