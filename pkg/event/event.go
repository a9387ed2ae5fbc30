package event

import (
	"strconv"

	"github.com/matzehuels/pglocktrace/pkg/lockmode"
)

// Header carries the fields every event has.
type Header struct {
	Kind      Kind
	Timestamp int64 // nanoseconds, monotonic clock of the traced host
	Pid       int

	// Stacktrace holds comma separated symbolized frames when the capture
	// layer recorded one. "MISSING" means the stack table overflowed.
	Stacktrace string
}

// Head returns h. It lets every concrete event satisfy [Event] through
// embedding.
func (h Header) Head() Header { return h }

func (Header) sealed() {}

// Event is implemented by the fixed set of concrete event types in this
// package: [Relation], [LockWait], [Grant], [Query], [Marker] and
// [ErrorReport], always handled as pointers. Consumers switch on the
// concrete type. Events are never modified after they are decoded.
type Event interface {
	Head() Header
	sealed()
}

// Object identifies a database object by OID, by resolved name, or both.
type Object struct {
	OID  uint32
	Name string
}

// Resolved reports whether a display name is known.
func (o Object) Resolved() bool { return o.Name != "" }

// IsZero reports whether the event referenced no object.
func (o Object) IsZero() bool { return o.OID == 0 && o.Name == "" }

// Key is the statistics key: the resolved name, or the raw OID.
func (o Object) Key() string {
	if o.Name != "" {
		return o.Name
	}
	return strconv.FormatUint(uint64(o.OID), 10)
}

// Label is the graph vertex name: the resolved name, or "Oid N".
func (o Object) Label() string {
	if o.Name != "" {
		return o.Name
	}
	return "Oid " + strconv.FormatUint(uint64(o.OID), 10)
}

// String renders the object for human output, e.g. "16384 (public.t1)".
func (o Object) String() string {
	switch {
	case o.OID != 0 && o.Name != "":
		return strconv.FormatUint(uint64(o.OID), 10) + " (" + o.Name + ")"
	case o.Name != "":
		return o.Name
	default:
		return strconv.FormatUint(uint64(o.OID), 10)
	}
}

// Relation is a relation-level lock call or table access:
// TABLE_OPEN, TABLE_CLOSE, LOCK_RELATION_OID and UNLOCK_RELATION_OID.
type Relation struct {
	Header
	Object Object
	Mode   lockmode.Mode
}

// LockWait is LOCK_RELATION_OID_END, the return of a relation lock call.
type LockWait struct {
	Header

	// LockTime is the wait reported by the producer, if it computed one.
	// Consumers measure the wait themselves and treat this as informational.
	LockTime *int64
}

// Grant is a lock table grant or ungrant. The Kind selects the path:
// shared lock table, fastpath, or backend-local.
type Grant struct {
	Header
	Object    Object
	Mode      lockmode.Mode
	Requested int // number of requested locks on the lock object
	LocalHold int // locks already held locally by this backend
}

// Granted reports whether g acquires (true) or releases (false) a lock.
func (g Grant) Granted() bool {
	switch g.Kind {
	case LockGranted, LockGrantedFastpath, LockGrantedLocal:
		return true
	}
	return false
}

// Local reports whether g is a backend-local grant or ungrant.
func (g Grant) Local() bool {
	return g.Kind == LockGrantedLocal || g.Kind == LockUngrantedLocal
}

// Query is QUERY_BEGIN.
type Query struct {
	Header
	Text string
}

// Marker is an event without payload: QUERY_END, TRANSACTION_BEGIN,
// TRANSACTION_COMMIT, TRANSACTION_ABORT and DEADLOCK.
type Marker struct {
	Header
}

// ErrorReport is ERROR, raised when the backend starts an error report.
type ErrorReport struct {
	Header
	Severity Severity
}

// ObjectOf returns the object referenced by ev, if any.
func ObjectOf(ev Event) (Object, bool) {
	switch e := ev.(type) {
	case *Relation:
		return e.Object, true
	case *Grant:
		return e.Object, true
	}
	return Object{}, false
}

// WithObject returns a copy of ev that references o. Events without an
// object are returned unchanged. The original event is not modified.
func WithObject(ev Event, o Object) Event {
	switch e := ev.(type) {
	case *Relation:
		c := *e
		c.Object = o
		return &c
	case *Grant:
		c := *e
		c.Object = o
		return &c
	}
	return ev
}
