// Package stats correlates relation lock requests with their completion and
// aggregates per-object and per-mode lock statistics.
//
// An [Aggregator] pairs LOCK_RELATION_OID (begin) with the following
// LOCK_RELATION_OID_END (end) of the same pid to measure how long the
// backend waited for the lock. Only one outstanding request per pid is
// tracked: lock acquisition is synchronous within a backend, so a second
// begin before the matching end overwrites the pending slot.
//
// Statistics only grow for the lifetime of an Aggregator. Create one per
// tracing session.
package stats

import (
	"cmp"
	"slices"

	"github.com/matzehuels/pglocktrace/pkg/event"
	"github.com/matzehuels/pglocktrace/pkg/lockmode"
)

// Entry holds the statistics of one object.
type Entry struct {
	LockCount      int             // number of lock requests
	WaitNanos      int64           // cumulative time spent waiting for the locks
	RequestedModes []lockmode.Mode // every requested mode, duplicates kept
}

type pending struct {
	requestedAt int64
	object      string
	active      bool
}

// Aggregator accumulates lock statistics from an ordered event stream.
// The zero value is not usable; use [New]. Aggregator is not safe for
// concurrent use.
type Aggregator struct {
	entries map[string]*Entry
	order   []string // first-seen order of keys
	pending map[int]*pending
}

// New returns an empty Aggregator.
func New() *Aggregator {
	return &Aggregator{
		entries: make(map[string]*Entry),
		pending: make(map[int]*pending),
	}
}

// Observe folds ev into the statistics. Events other than relation lock
// begin and end are ignored.
//
// An end without a pending begin for its pid contributes nothing.
func (a *Aggregator) Observe(ev event.Event) {
	switch e := ev.(type) {
	case *event.Relation:
		if e.Kind == event.LockRelationOid {
			a.begin(e.Pid, e.Object.Key(), e.Mode, e.Timestamp)
		}
	case *event.LockWait:
		a.end(e.Pid, e.Timestamp)
	}
}

func (a *Aggregator) begin(pid int, key string, mode lockmode.Mode, ts int64) {
	entry, ok := a.entries[key]
	if !ok {
		entry = &Entry{}
		a.entries[key] = entry
		a.order = append(a.order, key)
	}
	entry.LockCount++
	entry.RequestedModes = append(entry.RequestedModes, mode)

	p, ok := a.pending[pid]
	if !ok {
		p = &pending{}
		a.pending[pid] = p
	}
	p.requestedAt = ts
	p.object = key
	p.active = true
}

func (a *Aggregator) end(pid int, ts int64) {
	p, ok := a.pending[pid]
	if !ok || !p.active {
		return
	}
	a.entries[p.object].WaitNanos += ts - p.requestedAt
	p.active = false
	p.object = ""
}

// WaitTime returns the lock wait measured for an end event: its timestamp
// minus the timestamp of the last begin of the same pid. It reports false
// for every other kind and for ends whose pid never began a request.
//
// The request time survives Observe, so WaitTime may be called before or
// after the end event was observed.
func (a *Aggregator) WaitTime(ev event.Event) (int64, bool) {
	e, ok := ev.(*event.LockWait)
	if !ok {
		return 0, false
	}
	p, ok := a.pending[e.Pid]
	if !ok {
		return 0, false
	}
	return e.Timestamp - p.requestedAt, true
}

// Entry returns the statistics of key, or nil when key was never locked.
func (a *Aggregator) Entry(key string) *Entry {
	return a.entries[key]
}

// Len returns the number of distinct objects seen.
func (a *Aggregator) Len() int { return len(a.entries) }

// ObjectRow is one line of the per-object report.
type ObjectRow struct {
	Object    string `json:"object" bson:"object"`
	Requests  int    `json:"requests" bson:"requests"`
	WaitNanos int64  `json:"wait_ns" bson:"wait_ns"`
}

// ModeRow is one line of the per-mode report.
type ModeRow struct {
	Mode     string `json:"mode" bson:"mode"`
	Requests int    `json:"requests" bson:"requests"`
}

// Report is a snapshot of both statistics views.
type Report struct {
	Objects []ObjectRow `json:"objects" bson:"objects"`
	Modes   []ModeRow   `json:"modes" bson:"modes"`
}

// Report builds the per-object rows, sorted by descending request count
// with ties in first-seen order, and the per-mode rows, sorted by ascending
// mode ordinal and aggregated across all objects.
func (a *Aggregator) Report() Report {
	objects := make([]ObjectRow, 0, len(a.order))
	var perMode [lockmode.Count]int
	for _, key := range a.order {
		e := a.entries[key]
		objects = append(objects, ObjectRow{Object: key, Requests: e.LockCount, WaitNanos: e.WaitNanos})
		for _, m := range e.RequestedModes {
			if m.Valid() {
				perMode[m]++
			}
		}
	}
	slices.SortStableFunc(objects, func(x, y ObjectRow) int {
		return cmp.Compare(y.Requests, x.Requests)
	})

	var modes []ModeRow
	for _, m := range lockmode.All() {
		if perMode[m] == 0 {
			continue
		}
		modes = append(modes, ModeRow{Mode: m.String(), Requests: perMode[m]})
	}

	return Report{Objects: objects, Modes: modes}
}
