package event

import (
	"github.com/matzehuels/pglocktrace/pkg/errors"
)

// Kind identifies an event type. The numeric values match the identifiers
// the capture layer writes into its ring buffer.
type Kind int

const (
	TableOpen             Kind = 0
	TableClose            Kind = 1
	Error                 Kind = 2
	QueryBegin            Kind = 20
	QueryEnd              Kind = 21
	LockRelationOid       Kind = 30
	LockRelationOidEnd    Kind = 31
	UnlockRelationOid     Kind = 32
	LockGranted           Kind = 33
	LockGrantedFastpath   Kind = 34
	LockGrantedLocal      Kind = 35
	LockUngranted         Kind = 36
	LockUngrantedFastpath Kind = 37
	LockUngrantedLocal    Kind = 38
	TransactionBegin      Kind = 40
	TransactionCommit     Kind = 41
	TransactionAbort      Kind = 42

	// Kinds from Global upward are handled regardless of any pid filter.
	Global   Kind = 1000
	Deadlock Kind = 1001
)

var kindNames = map[Kind]string{
	TableOpen:             "TABLE_OPEN",
	TableClose:            "TABLE_CLOSE",
	Error:                 "ERROR",
	QueryBegin:            "QUERY_BEGIN",
	QueryEnd:              "QUERY_END",
	LockRelationOid:       "LOCK_RELATION_OID",
	LockRelationOidEnd:    "LOCK_RELATION_OID_END",
	UnlockRelationOid:     "UNLOCK_RELATION_OID",
	LockGranted:           "LOCK_GRANTED",
	LockGrantedFastpath:   "LOCK_GRANTED_FASTPATH",
	LockGrantedLocal:      "LOCK_GRANTED_LOCAL",
	LockUngranted:         "LOCK_UNGRANTED",
	LockUngrantedFastpath: "LOCK_UNGRANTED_FASTPATH",
	LockUngrantedLocal:    "LOCK_UNGRANTED_LOCAL",
	TransactionBegin:      "TRANSACTION_BEGIN",
	TransactionCommit:     "TRANSACTION_COMMIT",
	TransactionAbort:      "TRANSACTION_ABORT",
	Deadlock:              "DEADLOCK",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the wire name of k, e.g. "LOCK_GRANTED_LOCAL".
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// Known reports whether k is a recognized event kind.
func (k Kind) Known() bool {
	_, ok := kindNames[k]
	return ok
}

// IsGlobal reports whether k bypasses the pid filter.
func (k Kind) IsGlobal() bool { return k >= Global }

// ParseKind maps a wire name to its Kind.
// It fails with UNSUPPORTED_EVENT_KIND for names it does not recognize.
func ParseKind(name string) (Kind, error) {
	k, ok := kindsByName[name]
	if !ok {
		return 0, errors.New(errors.ErrCodeUnsupportedEventKind, "unsupported event type %q", name)
	}
	return k, nil
}

// Group is a coarse event category used to select what gets traced.
type Group int

const (
	GroupTransaction Group = iota + 1
	GroupQuery
	GroupTable
	GroupLock
	GroupError
)

var groupNames = map[Group]string{
	GroupTransaction: "TRANSACTION",
	GroupQuery:       "QUERY",
	GroupTable:       "TABLE",
	GroupLock:        "LOCK",
	GroupError:       "ERROR",
}

// String returns the group name as used on the command line.
func (g Group) String() string {
	if n, ok := groupNames[g]; ok {
		return n
	}
	return "UNKNOWN"
}

// GroupNames lists the accepted group names.
func GroupNames() []string {
	return []string{"TRANSACTION", "QUERY", "TABLE", "LOCK", "ERROR"}
}

// ParseGroup maps a group name to its Group.
func ParseGroup(name string) (Group, error) {
	for g, n := range groupNames {
		if n == name {
			return g, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown event group %q (must be one of %v)", name, GroupNames())
}

// Group returns the category k belongs to. Deadlocks are reported by the
// transaction probes and belong to GroupTransaction.
func (k Kind) Group() Group {
	switch k {
	case TransactionBegin, TransactionCommit, TransactionAbort, Deadlock:
		return GroupTransaction
	case QueryBegin, QueryEnd:
		return GroupQuery
	case TableOpen, TableClose:
		return GroupTable
	case Error:
		return GroupError
	default:
		return GroupLock
	}
}

// Severity is the elog level of an ERROR event.
type Severity int

const (
	SeverityError Severity = 21
	SeverityFatal Severity = 22
	SeverityPanic Severity = 23
)

var severityNames = map[Severity]string{
	SeverityError: "ERROR",
	SeverityFatal: "FATAL",
	SeverityPanic: "PANIC",
}

// String returns the elog level name.
func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseSeverity maps an elog level name to its Severity.
func ParseSeverity(name string) (Severity, error) {
	for s, n := range severityNames {
		if n == name {
			return s, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidFormat, "unknown error severity %q", name)
}
