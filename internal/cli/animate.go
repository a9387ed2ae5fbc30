package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	pgerrors "github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/frame"
)

// animateOpts holds the command-line flags for the animate command.
type animateOpts struct {
	sourceOpts
	output   string        // HTML animation path
	force    bool          // overwrite the output
	svgDir   string        // also render each frame to SVG here
	maxRun   int           // label wrapping threshold
	delay    time.Duration // pause before each transition
	duration time.Duration // transition length
	engine   string        // layout engine in the browser
}

// animateCommand creates the animate command, which replays a log through
// the lock graph and writes every snapshot as an animation frame.
func (c *CLI) animateCommand() *cobra.Command {
	var opts animateOpts

	cmd := &cobra.Command{
		Use:   "animate",
		Short: "Animate the lock graph of an event log",
		Long: `Replay an event log through the lock graph and write one frame per change.

Queries are drawn as gray ellipses, relations as boxes, and each edge is
labelled with the lock modes the query holds on the relation. The frames are
embedded into a self-contained HTML page that plays them with d3-graphviz.
With --svg-dir every frame is also laid out locally and written as SVG.`,
		Example: `  pglocktrace animate -i events.jsonl -o locks.html
  pglocktrace animate -i events.jsonl -o locks.html -f --svg-dir frames/ --max-run 30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.config.Animate
			if !cmd.Flags().Changed("max-run") {
				opts.maxRun = a.MaxRun
			}
			if !cmd.Flags().Changed("delay") {
				opts.delay = a.Delay.Duration
			}
			if !cmd.Flags().Changed("duration") {
				opts.duration = a.Duration.Duration
			}
			if !cmd.Flags().Changed("engine") {
				opts.engine = a.Engine
			}
			if opts.maxRun < 0 {
				return pgerrors.New(pgerrors.ErrCodeInvalidInput, "--max-run must not be negative")
			}
			return c.runAnimate(withLogger(cmd.Context(), c.Logger), &opts)
		},
	}

	opts.sourceOpts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "HTML animation to write")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "overwrite an existing output file")
	cmd.Flags().StringVar(&opts.svgDir, "svg-dir", "", "also render every frame as SVG into this directory")
	cmd.Flags().IntVar(&opts.maxRun, "max-run", frame.DefaultMaxRun, "wrap relation labels after this many characters")
	cmd.Flags().DurationVar(&opts.delay, "delay", frame.DefaultDelay, "pause before each transition")
	cmd.Flags().DurationVar(&opts.duration, "duration", frame.DefaultDuration, "length of each transition")
	cmd.Flags().StringVar(&opts.engine, "engine", frame.DefaultEngine, "Graphviz layout engine used by the page")
	_ = cmd.RegisterFlagCompletionFunc("engine", completeEngines)
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (c *CLI) runAnimate(ctx context.Context, opts *animateOpts) error {
	if err := checkOutput(opts.output, opts.force); err != nil {
		return err
	}

	t, err := c.openTracer(ctx, opts.sourceOpts, tracerConfig{
		output: io.Discard,
		graph:  true,
		maxRun: opts.maxRun,
	})
	if err != nil {
		return err
	}
	defer t.close(ctx)

	prog := newProgress(loggerFromContext(ctx))
	if err := t.run(ctx); err != nil {
		return err
	}
	frames := t.frames()
	prog.done(fmt.Sprintf("Recorded %d frames", len(frames)), t.session.Processed())

	html := frame.HTMLOptions{Delay: opts.delay, Duration: opts.duration, Engine: opts.engine}
	if err := writeAnimation(opts.output, frames, html); err != nil {
		return err
	}

	if opts.svgDir != "" {
		spinner := newSpinner(ctx, os.Stderr, "Rendering frames", len(frames))
		spinner.Start()
		paths, err := frame.WriteSVGs(ctx, opts.svgDir, frames, spinner.Advance)
		if err != nil {
			spinner.Fail("Rendering failed")
			return err
		}
		spinner.Succeed(fmt.Sprintf("Rendered %d SVG frames", len(paths)))
		printFile(opts.svgDir)
	}

	t.printCounts()
	printNextStep("Watch it live", fmt.Sprintf("%s serve -i %s --follow", appName, opts.input))
	return nil
}
