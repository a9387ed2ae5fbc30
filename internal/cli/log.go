// Package cli implements the pglocktrace command-line interface.
//
// The commands read the line-delimited JSON log written by the lock
// tracer, print it, aggregate lock statistics, and turn the lock graph into
// an animation. The CLI is built using cobra and logs via charmbracelet/log.
//
// # Commands
//
// The main commands are:
//   - trace: Print, filter and aggregate an event log, optionally following it
//   - animate: Render the lock graph of a log as an HTML animation or SVG frames
//   - serve: Serve the animation, its frames and Prometheus metrics over HTTP
//   - top: Live dashboard of per-relation lock statistics
//   - cache: Manage the OID name cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to the helpers that run a command.
//
// # Configuration
//
// Defaults are read from $XDG_CONFIG_HOME/pglocktrace/config.toml, or the
// file given with --config. Flags override the file.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger logs to w with a centisecond clock, e.g. "14:32:01.45 INFO ...".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// silenceLogger discards log output until the returned func is called.
// top uses it while the dashboard owns the terminal.
func (c *CLI) silenceLogger() (restore func()) {
	c.Logger.SetOutput(io.Discard)
	return func() { c.Logger.SetOutput(c.logOut) }
}

// progress times one pass over an event log.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time and, for a non-zero event count, the
// event rate: "Processed 4210 events (1.234s) events_per_sec=3411".
func (p *progress) done(msg string, events int) {
	elapsed := time.Since(p.start)
	line := msg + " (" + elapsed.Round(time.Millisecond).String() + ")"
	if events > 0 && elapsed > 0 {
		p.logger.Info(line, "events_per_sec", int(float64(events)/elapsed.Seconds()))
		return
	}
	p.logger.Info(line)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for the helpers a command calls.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
