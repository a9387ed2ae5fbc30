// Package event defines the lock-tracing event vocabulary and its JSON-lines
// wire format.
//
// # Events
//
// Every event has a [Header] (kind, timestamp, pid, optional stack trace)
// and, depending on its kind, a fixed payload. The concrete types are:
//
//   - [Relation]: TABLE_OPEN, TABLE_CLOSE, LOCK_RELATION_OID, UNLOCK_RELATION_OID
//   - [LockWait]: LOCK_RELATION_OID_END
//   - [Grant]: LOCK_GRANTED*, LOCK_UNGRANTED* (shared, fastpath and local)
//   - [Query]: QUERY_BEGIN
//   - [Marker]: QUERY_END, TRANSACTION_*, DEADLOCK
//   - [ErrorReport]: ERROR
//
// Consumers dispatch with a type switch and treat any other type as an
// UNSUPPORTED_EVENT_KIND error.
//
// # Wire Format
//
// One JSON object per line:
//
//	{"timestamp": 1200, "pid": 4711, "event": "LOCK_GRANTED_LOCAL",
//	 "lock_type": "AccessShareLock", "table": "public.t1", "oid": 16384}
//
// "event" and "pid" are required. Objects are identified by "table", "oid",
// or both. See [Record] for the complete field list.
//
// # Sources
//
// A [Source] yields events in arrival order. [Reader] decodes a finished log,
// [Follower] tails a log that is still growing, and [Slice] replays events
// held in memory.
package event
