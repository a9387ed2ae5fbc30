package lockgraph

import (
	"context"
	"io"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/event"
	"github.com/matzehuels/pglocktrace/pkg/lockmode"
	"github.com/matzehuels/pglocktrace/pkg/observability"
)

// Snapshotter captures the state of a graph. It is called synchronously
// after every change that emits a frame and must not keep g.
type Snapshotter interface {
	Snapshot(g *Graph)
}

// SnapshotFunc adapts a function to a [Snapshotter].
type SnapshotFunc func(g *Graph)

// Snapshot calls f(g).
func (f SnapshotFunc) Snapshot(g *Graph) { f(g) }

// Diagnostic records an ungrant of a mode that was not held.
type Diagnostic struct {
	Pid    int           `json:"pid" bson:"pid"`
	Object string        `json:"object" bson:"object"`
	Mode   lockmode.Mode `json:"mode" bson:"mode"`
}

// Machine folds lock events into a [Graph].
//
// Machine is not safe for concurrent use. Create one per session.
type Machine struct {
	Graph  *Graph
	Logger *log.Logger

	snap        Snapshotter
	snapshots   int
	diagnostics []Diagnostic
}

// NewMachine returns a machine over an empty graph.
// If snap is nil, snapshots are only counted.
// If logger is nil, diagnostics are not logged.
func NewMachine(snap Snapshotter, logger *log.Logger) *Machine {
	if snap == nil {
		snap = SnapshotFunc(func(*Graph) {})
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Machine{Graph: NewGraph(), Logger: logger, snap: snap}
}

// Snapshots returns the number of snapshots taken so far.
func (m *Machine) Snapshots() int { return m.snapshots }

// Diagnostics returns the orphan ungrants seen so far, in order.
func (m *Machine) Diagnostics() []Diagnostic { return m.diagnostics }

// Apply dispatches ev to the matching transition. QUERY_BEGIN,
// LOCK_GRANTED_LOCAL and LOCK_UNGRANTED_LOCAL change the graph; other known
// kinds are ignored. Objects are keyed by [event.Object.Label].
//
// The returned error is UNSUPPORTED_EVENT_KIND for kinds this package does
// not know, UNKNOWN_LOCK_MODE for invalid modes, and ORPHAN_UNGRANT for
// releases of modes that were not held. Only the last is recoverable; use
// [errors.IsFatal] to tell them apart.
func (m *Machine) Apply(ctx context.Context, ev event.Event) error {
	switch e := ev.(type) {
	case *event.Query:
		if e.Kind == event.QueryBegin {
			m.OnQueryBegin(ctx, e.Pid, e.Text)
		}
		return nil
	case *event.Grant:
		switch e.Kind {
		case event.LockGrantedLocal:
			return m.OnGrant(ctx, e.Pid, e.Object.Label(), e.Mode)
		case event.LockUngrantedLocal:
			return m.OnUngrant(ctx, e.Pid, e.Object.Label(), e.Mode)
		}
		return nil
	}
	if k := ev.Head().Kind; !k.Known() {
		return errors.New(errors.ErrCodeUnsupportedEventKind, "unsupported event kind %d", int(k))
	}
	return nil
}

// OnQueryBegin adds the query vertex of pid and takes a snapshot. A second
// query of the same pid relabels the existing vertex.
func (m *Machine) OnQueryBegin(ctx context.Context, pid int, text string) {
	m.Graph.SetQuery(pid, text)
	m.snapshot(ctx)
}

// OnGrant records that pid holds mode on object. A new edge takes a
// snapshot; merging into an existing edge does not.
//
// A grant by a pid without query vertex creates a placeholder vertex
// labeled "Pid N".
func (m *Machine) OnGrant(ctx context.Context, pid int, object string, mode lockmode.Mode) error {
	if !mode.Valid() {
		return errors.New(errors.ErrCodeUnknownLockMode, "unsupported lock type %d", int(mode))
	}
	if _, ok := m.Graph.Query(pid); !ok {
		m.Graph.SetQuery(pid, "Pid "+strconv.Itoa(pid))
	}
	m.Graph.AddObject(object)

	e, ok := m.Graph.Edge(pid, object)
	if !ok {
		m.Graph.SetEdge(pid, object, lockmode.Encode(mode))
		m.snapshot(ctx)
		return nil
	}

	// No frame on merge, unlike ungrant which always emits one.
	m.Graph.SetEdge(pid, object, e.Modes.Add(mode))
	return nil
}

// OnUngrant records that pid released mode on object. The edge is deleted
// once it holds no mode, the object vertex once it has no edge. A snapshot
// is taken in every case, including orphan ungrants.
func (m *Machine) OnUngrant(ctx context.Context, pid int, object string, mode lockmode.Mode) error {
	if !mode.Valid() {
		return errors.New(errors.ErrCodeUnknownLockMode, "unsupported lock type %d", int(mode))
	}
	defer m.snapshot(ctx)

	e, ok := m.Graph.Edge(pid, object)
	if !ok || !e.Modes.Has(mode) {
		return m.orphan(ctx, pid, object, mode)
	}

	m.Graph.SetEdge(pid, object, e.Modes.Remove(mode))
	if m.Graph.HasObject(object) && m.Graph.Degree(object) == 0 {
		m.Graph.RemoveObject(object)
	}
	return nil
}

func (m *Machine) orphan(ctx context.Context, pid int, object string, mode lockmode.Mode) error {
	m.diagnostics = append(m.diagnostics, Diagnostic{Pid: pid, Object: object, Mode: mode})
	m.Logger.Warn("lock removed but was not held", "pid", pid, "object", object, "mode", mode)
	observability.Trace().OnOrphanUngrant(ctx, pid, object, mode.String())
	return errors.New(errors.ErrCodeOrphanUngrant, "lock %s on %s removed but was not held by pid %d", mode, object, pid)
}

func (m *Machine) snapshot(ctx context.Context) {
	m.snapshots++
	m.snap.Snapshot(m.Graph)
	observability.Trace().OnFrame(ctx, m.Graph.VertexCount(), m.Graph.EdgeCount())
}
