package event

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/lockmode"
)

// Record is the JSON wire shape of one event, one object per line.
// Field order matches the tracer's JSON output.
type Record struct {
	Timestamp     int64  `json:"timestamp"`
	Pid           int    `json:"pid"`
	Event         string `json:"event"`
	LockType      string `json:"lock_type,omitempty"`
	Table         string `json:"table,omitempty"`
	OID           uint32 `json:"oid,omitempty"`
	Servity       string `json:"servity,omitempty"`
	Query         string `json:"query,omitempty"`
	LockLocalHold *int   `json:"lock_local_hold,omitempty"`
	Requested     *int   `json:"requested,omitempty"`
	LockTime      *int64 `json:"lock_time,omitempty"`
	Stacktrace    string `json:"stacktrace,omitempty"`
}

// wireRecord shadows Record.Pid so that a missing "pid" can be told
// apart from pid 0.
type wireRecord struct {
	Record
	Pid *int `json:"pid"`
}

// Parse decodes one JSON line into an event.
//
// Parse fails with UNSUPPORTED_EVENT_KIND when "event" names an unknown
// kind, and with UNKNOWN_LOCK_MODE when a lock event carries a "lock_type"
// outside the registered modes. A line without "pid", or a lock event
// naming neither "table" nor "oid", fails with INVALID_FORMAT. All of these
// indicate a producer/consumer schema mismatch and are fatal to a session.
func Parse(line []byte) (Event, error) {
	var w wireRecord
	if err := json.Unmarshal(line, &w); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode event")
	}
	if w.Pid == nil {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "event %q has no pid", w.Event)
	}
	w.Record.Pid = *w.Pid
	return w.Record.Decode()
}

// Decode converts r into its concrete event type.
func (r Record) Decode() (Event, error) {
	kind, err := ParseKind(r.Event)
	if err != nil {
		return nil, err
	}
	h := Header{Kind: kind, Timestamp: r.Timestamp, Pid: r.Pid, Stacktrace: r.Stacktrace}
	obj := Object{OID: r.OID, Name: r.Table}

	switch kind {
	case TableOpen, TableClose, LockRelationOid, UnlockRelationOid:
		mode, err := lockmode.Parse(r.LockType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		if err := r.checkObject(kind); err != nil {
			return nil, err
		}
		return &Relation{Header: h, Object: obj, Mode: mode}, nil

	case LockRelationOidEnd:
		return &LockWait{Header: h, LockTime: r.LockTime}, nil

	case LockGranted, LockGrantedFastpath, LockGrantedLocal,
		LockUngranted, LockUngrantedFastpath, LockUngrantedLocal:
		mode, err := lockmode.Parse(r.LockType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind, err)
		}
		if err := r.checkObject(kind); err != nil {
			return nil, err
		}
		g := &Grant{Header: h, Object: obj, Mode: mode}
		if r.Requested != nil {
			g.Requested = *r.Requested
		}
		if r.LockLocalHold != nil {
			g.LocalHold = *r.LockLocalHold
		}
		return g, nil

	case QueryBegin:
		return &Query{Header: h, Text: r.Query}, nil

	case QueryEnd, TransactionBegin, TransactionCommit, TransactionAbort, Deadlock:
		return &Marker{Header: h}, nil

	case Error:
		sev, err := ParseSeverity(r.Servity)
		if err != nil {
			return nil, err
		}
		return &ErrorReport{Header: h, Severity: sev}, nil
	}

	return nil, errors.New(errors.ErrCodeUnsupportedEventKind, "unsupported event type %q", r.Event)
}

// checkObject requires a relation name or OID on lock events.
func (r Record) checkObject(kind Kind) error {
	if (Object{OID: r.OID, Name: r.Table}).IsZero() {
		return errors.New(errors.ErrCodeInvalidFormat, "%s event of pid %d names no table or oid", kind, r.Pid)
	}
	return nil
}

// Encode converts ev into its wire shape. The lock wait, when known, is
// passed separately because it is measured by the consumer.
func Encode(ev Event, lockTime *int64) (Record, error) {
	h := ev.Head()
	r := Record{
		Timestamp:  h.Timestamp,
		Pid:        h.Pid,
		Event:      h.Kind.String(),
		Stacktrace: h.Stacktrace,
	}

	switch e := ev.(type) {
	case *Relation:
		if err := encodeLock(&r, e.Object, e.Mode); err != nil {
			return Record{}, err
		}
	case *Grant:
		if err := encodeLock(&r, e.Object, e.Mode); err != nil {
			return Record{}, err
		}
		if e.Local() && e.Granted() {
			hold := e.LocalHold
			r.LockLocalHold = &hold
		}
	case *LockWait:
		r.LockTime = lockTime
		if r.LockTime == nil {
			r.LockTime = e.LockTime
		}
	case *Query:
		r.Query = e.Text
	case *ErrorReport:
		r.Servity = e.Severity.String()
	case *Marker:
	default:
		return Record{}, errors.New(errors.ErrCodeUnsupportedEventKind, "unsupported event type %T", ev)
	}
	return r, nil
}

func encodeLock(r *Record, o Object, m lockmode.Mode) error {
	name, err := m.Name()
	if err != nil {
		return err
	}
	r.LockType = name
	r.Table = o.Name
	r.OID = o.OID
	return nil
}
