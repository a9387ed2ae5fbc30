// Package trace runs a tracing session over a stream of lock events.
//
// A [Session] owns everything that accumulates while events arrive: the
// lock statistics, the optional lock graph state machine and the
// formatter writing the per-event output. Events are processed one at a
// time, fully, in arrival order:
//
//  1. events from untraced pids and disabled event groups are dropped;
//     DEADLOCK and other global kinds pass any pid filter
//  2. the OID is resolved with the resolver registered for the event's pid
//  3. the statistics are updated
//  4. the lock graph is updated, which may emit a frame
//  5. the event is written with the session's [Formatter]
//
// Run stops at the end of the source, at the first fatal error, or when
// its context is canceled. Whatever was accumulated up to that point stays
// valid; callers print statistics and write frames from it on the way out.
package trace
