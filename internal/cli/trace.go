package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pglocktrace/pkg/archive"
	"github.com/matzehuels/pglocktrace/pkg/frame"
	"github.com/matzehuels/pglocktrace/pkg/stats"
	"github.com/matzehuels/pglocktrace/pkg/trace"
)

// archiveTimeout bounds saving a session after the trace was interrupted.
const archiveTimeout = 10 * time.Second

// traceOpts holds the command-line flags for the trace command.
type traceOpts struct {
	sourceOpts
	json       bool   // print JSON lines instead of the human format
	output     string // write events here instead of stdout
	force      bool   // overwrite existing output files
	statistics bool   // print lock statistics when the session ends
	archive    bool   // store the session summary
	graphHTML  string // write the lock graph animation here
}

// traceCommand creates the trace command for printing and aggregating an
// event log.
func (c *CLI) traceCommand() *cobra.Command {
	var opts traceOpts

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print, filter and aggregate a lock event log",
		Long: `Print the events of a lock tracer log in a readable form or as JSON lines.

Events can be restricted to backend pids (-p) and event groups (-t). Global
events such as deadlocks are printed regardless of the pid filter. OIDs are
resolved to relation names when a database is given for the pid (-r).

With --follow the log is read as it grows until the command is interrupted.
Statistics and the lock graph are written when the session ends, including
on interruption.`,
		Example: `  pglocktrace trace -i events.jsonl --statistics
  pglocktrace trace -i events.jsonl -p 4711 -t LOCK,QUERY -r 4711:postgres://localhost/app
  pglocktrace trace -i events.jsonl --follow --graph-html locks.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("json") {
				opts.json = c.config.Trace.JSON
			}
			if !cmd.Flags().Changed("statistics") {
				opts.statistics = c.config.Trace.Statistics
			}
			return c.runTrace(withLogger(cmd.Context(), c.Logger), &opts)
		},
	}

	opts.sourceOpts.register(cmd)
	cmd.Flags().BoolVarP(&opts.json, "json", "j", false, "print events as JSON lines")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write events to this file instead of stdout")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite existing output files")
	cmd.Flags().BoolVar(&opts.statistics, "statistics", false, "print lock statistics to stdout when the session ends")
	cmd.Flags().BoolVar(&opts.follow, "follow", false, "keep reading the log as it grows")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "store the session summary (MongoDB or a JSON directory)")
	cmd.Flags().StringVar(&opts.graphHTML, "graph-html", "", "write the lock graph animation to this HTML file")

	return cmd
}

// runTrace processes the log and flushes everything the session collected,
// also when ctx is cancelled midway.
func (c *CLI) runTrace(ctx context.Context, opts *traceOpts) error {
	logger := loggerFromContext(ctx)

	if opts.graphHTML != "" {
		if err := checkOutput(opts.graphHTML, opts.force); err != nil {
			return err
		}
	}
	out, closeOut, err := createOutput(opts.output, opts.force, c.Stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	t, err := c.openTracer(ctx, opts.sourceOpts, tracerConfig{
		formatter: trace.NewFormatter(opts.json),
		output:    out,
		graph:     opts.graphHTML != "" || opts.archive,
		maxRun:    c.config.Animate.MaxRun,
	})
	if err != nil {
		return err
	}
	defer t.close(ctx)

	prog := newProgress(logger)
	runErr := t.run(ctx)
	if runErr != nil && ctx.Err() == nil {
		logger.Error("trace stopped", "error", runErr)
	}

	// Statistics always go to stdout, also when events go to a file.
	if opts.statistics {
		if err := stats.Write(c.Stdout, t.session.Stats().Report()); err != nil {
			return err
		}
	}
	if opts.graphHTML != "" {
		if err := writeAnimation(opts.graphHTML, t.frames(), c.htmlOptions()); err != nil {
			return err
		}
	}
	if opts.archive {
		if err := c.archiveSession(ctx, t.session.Summary()); err != nil {
			return err
		}
	}

	prog.done(fmt.Sprintf("Processed %d events", t.session.Processed()), t.session.Processed())
	t.printCounts()
	return runErr
}

// writeAnimation writes frames as an HTML animation to path.
func writeAnimation(path string, frames []frame.Frame, opts frame.HTMLOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := frame.WriteHTML(f, frames, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printSuccess("Wrote %d frames", len(frames))
	printFile(path)
	return nil
}

func (c *CLI) htmlOptions() frame.HTMLOptions {
	a := c.config.Animate
	return frame.HTMLOptions{
		Delay:    a.Delay.Duration,
		Duration: a.Duration.Duration,
		Engine:   a.Engine,
	}
}

// =============================================================================
// Archive
// =============================================================================

// archiveSession saves s to MongoDB when a URI is configured, else to the
// archive directory.
func (c *CLI) archiveSession(ctx context.Context, s trace.Summary) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	store, where, err := c.openArchive(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	if err := store.Save(ctx, s); err != nil {
		return err
	}
	printSuccess("Archived session %s", s.ID)
	printDetail("Store: %s", where)
	return nil
}

func (c *CLI) openArchive(ctx context.Context) (archive.Store, string, error) {
	cfg := c.config.Archive
	if cfg.MongoURI != "" {
		store, err := archive.NewMongoStore(ctx, cfg.MongoURI, cfg.Database, cfg.Collection)
		if err != nil {
			return nil, "", err
		}
		return store, "mongodb " + cfg.Database + "." + cfg.Collection, nil
	}

	dir := cfg.Dir
	if dir == "" {
		d, err := dataDir()
		if err != nil {
			return nil, "", fmt.Errorf("get data dir: %w", err)
		}
		dir = filepath.Join(d, "sessions")
	}
	store, err := archive.NewFileStore(dir)
	if err != nil {
		return nil, "", err
	}
	return store, dir, nil
}
