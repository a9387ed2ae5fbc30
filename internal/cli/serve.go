package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pglocktrace/pkg/frame"
)

const (
	defaultAddr     = "localhost:8080"
	shutdownTimeout = 5 * time.Second
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	sourceOpts
	addr string // listen address
}

// serveCommand creates the serve command, which replays or follows a log
// and serves the growing animation over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the lock graph animation and metrics over HTTP",
		Long: `Process an event log in the background and serve its lock graph.

Routes:
  /             animation page with every frame recorded so far
  /frames.json  the frames as JSON
  /metrics      Prometheus metrics of the session

With --follow the log keeps being read while the server runs, so reloading
the page shows new frames.`,
		Example: `  pglocktrace serve -i events.jsonl --follow --addr :9187`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(withLogger(cmd.Context(), c.Logger), &opts)
		},
	}

	opts.sourceOpts.register(cmd)
	cmd.Flags().BoolVar(&opts.follow, "follow", false, "keep reading the log as it grows")
	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr, "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts *serveOpts) error {
	logger := loggerFromContext(ctx)

	m := newMetrics()
	m.install()

	t, err := c.openTracer(ctx, opts.sourceOpts, tracerConfig{
		output: io.Discard,
		graph:  true,
		maxRun: c.config.Animate.MaxRun,
	})
	if err != nil {
		return err
	}
	defer t.close(ctx)

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newRouter(t.recorder, m, c.htmlOptions()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	printSuccess("Serving on %s", StyleLink.Render("http://"+opts.addr))

	// Registered after t.close, so the session has stopped before the
	// source and catalogs are closed.
	stop := background(ctx, func(ctx context.Context) {
		if err := t.run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("trace stopped", "error", err)
			return
		}
		logger.Info("log processed", "events", t.session.Processed(), "frames", t.recorder.Len())
	})
	defer stop()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	printInfo("Server stopped")
	return nil
}

// background runs fn in a goroutine. The returned stop cancels fn's
// context and waits for fn to return.
func background(ctx context.Context, fn func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// newRouter serves the frames held by rec.
func newRouter(rec *frame.Recorder, m *metrics, html frame.HTMLOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := frame.WriteHTML(w, rec.Frames(), html); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	r.Get("/frames.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(rec.Frames()); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	r.Method(http.MethodGet, "/metrics", m.handler())

	return r
}
