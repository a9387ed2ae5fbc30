package trace

import (
	"context"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/event"
	"github.com/matzehuels/pglocktrace/pkg/lockgraph"
	"github.com/matzehuels/pglocktrace/pkg/observability"
	"github.com/matzehuels/pglocktrace/pkg/oid"
	"github.com/matzehuels/pglocktrace/pkg/stats"
)

// Options configures a [Session].
type Options struct {
	// Pids restricts the session to these backends. Empty traces all.
	Pids []int

	// Groups restricts the session to these event groups. Empty keeps all.
	Groups []event.Group

	// Resolvers maps a pid to the resolver of its database's OIDs.
	Resolvers map[int]oid.Resolver

	// Formatter renders processed events to Output. Nil uses [Human].
	Formatter Formatter

	// Output receives formatted events. Nil discards them.
	Output io.Writer

	// Graph, if set, receives every processed event.
	Graph *lockgraph.Machine

	// Source names the event source in the session summary.
	Source string

	Logger *log.Logger
}

func (o *Options) setDefaults() {
	if o.Formatter == nil {
		o.Formatter = Human{}
	}
	if o.Output == nil {
		o.Output = io.Discard
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Session accumulates the state of one trace. It is not safe for
// concurrent use.
type Session struct {
	ID      uuid.UUID
	Started time.Time

	opts      Options
	stats     *stats.Aggregator
	processed int
	skipped   int
}

// NewSession returns a session with a fresh id.
func NewSession(opts Options) *Session {
	opts.setDefaults()
	return &Session{
		ID:      uuid.New(),
		Started: time.Now(),
		opts:    opts,
		stats:   stats.New(),
	}
}

// Stats returns the statistics accumulated so far.
func (s *Session) Stats() *stats.Aggregator { return s.stats }

// Graph returns the lock graph machine, or nil if the session has none.
func (s *Session) Graph() *lockgraph.Machine { return s.opts.Graph }

// Processed returns the number of events processed.
func (s *Session) Processed() int { return s.processed }

// Skipped returns the number of events dropped by the pid and group filters.
func (s *Session) Skipped() int { return s.skipped }

// Accepts reports whether ev passes the pid and group filters.
func (s *Session) Accepts(ev event.Event) bool {
	h := ev.Head()
	if len(s.opts.Pids) > 0 && !h.Kind.IsGlobal() && !slices.Contains(s.opts.Pids, h.Pid) {
		return false
	}
	if len(s.opts.Groups) > 0 && !slices.Contains(s.opts.Groups, h.Kind.Group()) {
		return false
	}
	return true
}

// Process handles a single event. Non-fatal errors, such as orphan
// ungrants in the lock graph, are logged and not returned.
func (s *Session) Process(ctx context.Context, ev event.Event) error {
	h := ev.Head()
	if !h.Kind.Known() {
		return errors.New(errors.ErrCodeUnsupportedEventKind, "unsupported event kind %d", int(h.Kind))
	}
	if !s.Accepts(ev) {
		s.skipped++
		return nil
	}

	ev = s.resolve(ctx, ev)
	s.stats.Observe(ev)

	if m := s.opts.Graph; m != nil {
		if err := m.Apply(ctx, ev); err != nil && errors.IsFatal(err) {
			return err
		}
	}

	var wait *int64
	if w, ok := s.stats.WaitTime(ev); ok {
		wait = &w
	}
	if err := s.opts.Formatter.Format(s.opts.Output, ev, wait); err != nil {
		return err
	}

	s.processed++
	observability.Trace().OnEvent(ctx, h.Kind.String())
	s.opts.Logger.Debug("processed event", "kind", h.Kind, "pid", h.Pid)
	return nil
}

func (s *Session) resolve(ctx context.Context, ev event.Event) event.Event {
	obj, ok := event.ObjectOf(ev)
	if !ok || obj.Resolved() || obj.OID == 0 {
		return ev
	}
	r, ok := s.opts.Resolvers[ev.Head().Pid]
	if !ok {
		return ev
	}
	obj.Name = r.Resolve(ctx, obj.OID)
	return event.WithObject(ev, obj)
}

// Run processes events from src until it is exhausted, a fatal error
// occurs, or ctx is done. Exhausting the source returns nil.
func (s *Session) Run(ctx context.Context, src event.Source) error {
	for {
		ev, err := src.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.Process(ctx, ev); err != nil {
			return err
		}
	}
}

// Summary describes a finished or interrupted session.
type Summary struct {
	ID          string                 `json:"id" bson:"_id"`
	Source      string                 `json:"source" bson:"source"`
	Started     time.Time              `json:"started" bson:"started"`
	Ended       time.Time              `json:"ended" bson:"ended"`
	Processed   int                    `json:"processed" bson:"processed"`
	Skipped     int                    `json:"skipped" bson:"skipped"`
	Statistics  stats.Report           `json:"statistics" bson:"statistics"`
	Frames      int                    `json:"frames" bson:"frames"`
	Diagnostics []lockgraph.Diagnostic `json:"diagnostics,omitempty" bson:"diagnostics,omitempty"`
}

// Summary snapshots the session state.
func (s *Session) Summary() Summary {
	sum := Summary{
		ID:         s.ID.String(),
		Source:     s.opts.Source,
		Started:    s.Started,
		Ended:      time.Now(),
		Processed:  s.processed,
		Skipped:    s.skipped,
		Statistics: s.stats.Report(),
	}
	if m := s.opts.Graph; m != nil {
		sum.Frames = m.Snapshots()
		sum.Diagnostics = m.Diagnostics()
	}
	return sum
}
