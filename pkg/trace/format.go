package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/pglocktrace/pkg/errors"
	"github.com/matzehuels/pglocktrace/pkg/event"
)

// MissingStack is the stacktrace value of events whose stack could not be
// captured.
const MissingStack = "MISSING"

// Formatter renders one event. wait is the measured lock wait of
// LOCK_RELATION_OID_END events and nil otherwise.
type Formatter interface {
	Format(w io.Writer, ev event.Event, wait *int64) error
}

// NewFormatter returns the JSON formatter if asJSON is set, the human
// readable one otherwise.
func NewFormatter(asJSON bool) Formatter {
	if asJSON {
		return JSON{}
	}
	return Human{}
}

// Human prints one line per event, prefixed with timestamp and pid, and
// stack traces as tab-indented frames below it.
type Human struct{}

// Format implements [Formatter].
func (Human) Format(w io.Writer, ev event.Event, wait *int64) error {
	line, err := humanLine(ev, wait)
	if err != nil {
		return err
	}
	h := ev.Head()
	if _, err := fmt.Fprintf(w, "%d [Pid %d] %s\n", h.Timestamp, h.Pid, line); err != nil {
		return err
	}
	return writeStack(w, h.Stacktrace)
}

func humanLine(ev event.Event, wait *int64) (string, error) {
	switch e := ev.(type) {
	case *event.Relation:
		switch e.Kind {
		case event.TableOpen:
			return fmt.Sprintf("Table open %s %s", e.Object, e.Mode), nil
		case event.TableClose:
			return fmt.Sprintf("Table close %s %s", e.Object, e.Mode), nil
		case event.LockRelationOid:
			return fmt.Sprintf("Lock object %s %s", e.Object, e.Mode), nil
		case event.UnlockRelationOid:
			return fmt.Sprintf("Unlock relation %s %s", e.Object, e.Mode), nil
		}
	case *event.LockWait:
		if wait == nil {
			wait = e.LockTime
		}
		return "Lock was acquired in " + formatWait(wait) + " ns", nil
	case *event.Grant:
		switch e.Kind {
		case event.LockGranted:
			return fmt.Sprintf("Lock granted %s %s (Requested locks %d)", e.Object, e.Mode, e.Requested), nil
		case event.LockGrantedFastpath:
			return fmt.Sprintf("Lock granted (fastpath) %s %s", e.Object, e.Mode), nil
		case event.LockGrantedLocal:
			return fmt.Sprintf("Lock granted (local) %s %s (Already hold local %d)", e.Object, e.Mode, e.LocalHold), nil
		case event.LockUngranted:
			return fmt.Sprintf("Lock ungranted %s %s (Requested locks %d)", e.Object, e.Mode, e.Requested), nil
		case event.LockUngrantedFastpath:
			return fmt.Sprintf("Lock ungranted (fastpath) %s %s", e.Object, e.Mode), nil
		case event.LockUngrantedLocal:
			return fmt.Sprintf("Lock ungranted (local) %s %s (Hold local %d)", e.Object, e.Mode, e.LocalHold), nil
		}
	case *event.ErrorReport:
		return "Error occurred servity: " + e.Severity.String(), nil
	case *event.Query:
		return fmt.Sprintf("Query begin '%s'", e.Text), nil
	case *event.Marker:
		switch e.Kind {
		case event.QueryEnd:
			return "Query done\n", nil
		case event.TransactionBegin:
			return "Transaction begin", nil
		case event.TransactionCommit:
			return "Transaction commit", nil
		case event.TransactionAbort:
			return "Transaction abort", nil
		case event.Deadlock:
			return "DEADLOCK DETECTED", nil
		}
	}
	return "", errors.New(errors.ErrCodeUnsupportedEventKind, "unsupported event type %s", ev.Head().Kind)
}

func formatWait(wait *int64) string {
	if wait == nil {
		return "unknown"
	}
	return strconv.FormatInt(*wait, 10)
}

func writeStack(w io.Writer, stack string) error {
	switch stack {
	case "":
		return nil
	case MissingStack:
		_, err := io.WriteString(w, "Error stack is missing. Try to increase BPF_STACK_TRACE buffer size.\n")
		return err
	}
	for _, frame := range strings.Split(stack, ", ") {
		if _, err := fmt.Fprintf(w, "\t%s\n", frame); err != nil {
			return err
		}
	}
	return nil
}

// JSON prints one JSON object per line in the same shape the event log is
// read from, so JSON output can be fed back into the animate command.
type JSON struct{}

// Format implements [Formatter].
func (JSON) Format(w io.Writer, ev event.Event, wait *int64) error {
	rec, err := event.Encode(ev, wait)
	if err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
