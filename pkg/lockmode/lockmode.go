// Package lockmode encodes PostgreSQL heavyweight lock modes and sets of them.
//
// The nine modes mirror the defines in PostgreSQL's
// src/include/storage/lockdefs.h. Ordinal order is escalation severity:
// NoLock (0) is not a lock at all, AccessExclusiveLock (8) conflicts with
// everything.
//
// A [Set] packs any combination of modes into a single integer, bit i set iff
// mode i is a member. Sets have set semantics: adding a mode twice leaves the
// set unchanged, so Encode followed by Modes is not a multiset round-trip.
//
//	s := lockmode.Encode(lockmode.AccessShare, lockmode.RowExclusive)
//	fmt.Println(uint16(s), s.Names()) // 10 [AccessShareLock RowExclusiveLock]
package lockmode

import (
	"strconv"
	"strings"

	"github.com/matzehuels/pglocktrace/pkg/errors"
)

// Mode is a lock mode ordinal in the range 0..8.
type Mode uint8

const (
	NoLock               Mode = iota // not a lock mode, "don't get a lock"
	AccessShare                      // SELECT
	RowShare                         // SELECT FOR UPDATE/FOR SHARE
	RowExclusive                     // INSERT, UPDATE, DELETE
	ShareUpdateExclusive             // VACUUM (non-FULL), ANALYZE, CREATE INDEX CONCURRENTLY
	Share                            // CREATE INDEX (WITHOUT CONCURRENTLY)
	ShareRowExclusive                // like EXCLUSIVE MODE, but allows ROW SHARE
	Exclusive                        // blocks ROW SHARE/SELECT...FOR UPDATE
	AccessExclusive                  // ALTER TABLE, DROP TABLE, VACUUM FULL, LOCK TABLE
)

// Count is the number of registered lock modes.
const Count = 9

var names = [Count]string{
	"NoLock",
	"AccessShareLock",
	"RowShareLock",
	"RowExclusiveLock",
	"ShareUpdateExclusiveLock",
	"ShareLock",
	"ShareRowExclusiveLock",
	"ExclusiveLock",
	"AccessExclusiveLock",
}

var byName = func() map[string]Mode {
	m := make(map[string]Mode, Count)
	for i, n := range names {
		m[n] = Mode(i)
	}
	return m
}()

// All returns every registered mode in ascending ordinal order.
func All() []Mode {
	modes := make([]Mode, Count)
	for i := range modes {
		modes[i] = Mode(i)
	}
	return modes
}

// Valid reports whether m is one of the nine registered modes.
func (m Mode) Valid() bool { return m < Count }

// Name returns the canonical PostgreSQL name of m.
// It fails with UNKNOWN_LOCK_MODE for ordinals outside 0..8.
func (m Mode) Name() (string, error) {
	if !m.Valid() {
		return "", errors.New(errors.ErrCodeUnknownLockMode, "unsupported lock type %d", m)
	}
	return names[m], nil
}

// String implements fmt.Stringer. Unknown ordinals render as "Mode(n)".
func (m Mode) String() string {
	if n, err := m.Name(); err == nil {
		return n
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// Parse returns the mode registered under name.
// It fails with UNKNOWN_LOCK_MODE when name is not one of the canonical names.
func Parse(name string) (Mode, error) {
	m, ok := byName[name]
	if !ok {
		return 0, errors.New(errors.ErrCodeUnknownLockMode, "unknown lock type %q", name)
	}
	return m, nil
}

// ParseAll parses a list of names, stopping at the first unknown one.
func ParseAll(names ...string) ([]Mode, error) {
	modes := make([]Mode, 0, len(names))
	for _, n := range names {
		m, err := Parse(n)
		if err != nil {
			return nil, err
		}
		modes = append(modes, m)
	}
	return modes, nil
}

// Set is a bitmask of lock modes. The zero value is the empty set.
type Set uint16

// Encode ORs 1<<ordinal over modes. Duplicates collapse; an empty input
// yields the empty set.
func Encode(modes ...Mode) Set {
	var s Set
	for _, m := range modes {
		s = s.Add(m)
	}
	return s
}

// Modes decodes s into its members in ascending ordinal order.
// Bits above the registered range are ignored.
func (s Set) Modes() []Mode {
	modes := []Mode{}
	for i := Mode(0); i < Count; i++ {
		if s.Has(i) {
			modes = append(modes, i)
		}
	}
	return modes
}

// Has reports whether m is a member of s.
func (s Set) Has(m Mode) bool {
	return m.Valid() && s&(1<<m) != 0
}

// Add returns s with m inserted. Unregistered ordinals are ignored.
func (s Set) Add(m Mode) Set {
	if !m.Valid() {
		return s
	}
	return s | 1<<m
}

// Remove returns s with m removed. Removing a non-member is a no-op.
func (s Set) Remove(m Mode) Set { return s &^ (1 << m) }

// Len returns the number of members.
func (s Set) Len() int { return len(s.Modes()) }

// Empty reports whether s has no members.
func (s Set) Empty() bool { return s.Len() == 0 }

// Names returns the canonical names of the members in ascending ordinal order.
func (s Set) Names() []string {
	modes := s.Modes()
	out := make([]string, len(modes))
	for i, m := range modes {
		out[i] = names[m]
	}
	return out
}

// String joins the member names with commas, e.g. "AccessShareLock,RowExclusiveLock".
func (s Set) String() string {
	return strings.Join(s.Names(), ",")
}
