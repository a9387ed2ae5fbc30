// Package pkg provides the libraries behind pglocktrace.
//
// # Overview
//
// pglocktrace consumes the event log of a PostgreSQL lock tracer: one JSON
// object per line describing lock requests, grants, releases, query
// boundaries, transactions and deadlocks of backend processes. The libraries
// turn that stream into readable output, lock statistics, and an animated
// graph of which query holds which lock. The pkg directory is organized into
// four areas:
//
//  1. Domain - lock modes, events, the lock graph and its frames
//  2. Session - the single-threaded reducer tying the domain together
//  3. Infrastructure - OID resolution, caching, archiving, observability
//  4. Support - errors and build information
//
// # Architecture
//
// The data flow of a session:
//
//	Event log (JSON lines, file or followed)
//	         ↓
//	    [event] package (decode into typed events)
//	         ↓
//	    [trace] package (filter, resolve OIDs, dispatch)
//	       ↙     ↓      ↘
//	 [stats]  [lockgraph]  Formatter (human or JSON)
//	              ↓
//	          [frame] package (DOT snapshots → HTML / SVG)
//
// # Quick Start
//
// Replay a log and animate its lock graph:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/pglocktrace/pkg/event"
//	    "github.com/matzehuels/pglocktrace/pkg/frame"
//	    "github.com/matzehuels/pglocktrace/pkg/lockgraph"
//	    "github.com/matzehuels/pglocktrace/pkg/trace"
//	)
//
//	rec := frame.NewRecorder(frame.DefaultMaxRun)
//	s := trace.NewSession(trace.Options{
//	    Graph:  lockgraph.NewMachine(rec, nil),
//	    Output: os.Stdout,
//	})
//	_ = s.Run(ctx, event.NewReader(f))
//	_ = frame.WriteHTML(out, rec.Frames(), frame.HTMLOptions{})
//
// # Main Packages
//
// ## Domain
//
// [lockmode] - The nine PostgreSQL table lock modes and a bitmask set of
// them, with the codec between names, ordinals and sets.
//
// [event] - Event kinds, groups and typed events; the JSON wire codec; and
// sources reading a log once or following it as it grows.
//
// [lockgraph] - The bipartite graph of queries and relations with lock mode
// sets on its edges, and the state machine applying grant and ungrant events.
//
// [frame] - DOT snapshots of the lock graph with the circo mindist heuristic,
// the HTML animation page, and local SVG rendering through Graphviz.
//
// [label] - Wrapping of long relation names for graph labels.
//
// ## Session
//
// [trace] - Pid and group filters, per-pid OID resolution, the human and JSON
// formatters, and the session summary.
//
// [stats] - Lock wait pairing per pid and the per-relation and per-mode
// reports.
//
// ## Infrastructure
//
// [oid] - Resolvers from relation OIDs to names, backed by the pg_class
// catalog of a database.
//
// [cache] - Byte caches for resolved names: file, Redis and null backends.
//
// [archive] - Storage of session summaries in MongoDB or a JSON directory.
//
// [observability] - Hook interfaces for metrics with no-op defaults.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/lockgraph/...          # Specific package
//	go test -run Example                 # Examples only
//
// Redis and MongoDB tests run only when PGLOCKTRACE_TEST_REDIS or
// PGLOCKTRACE_TEST_MONGO point at a server.
//
// [lockmode]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/lockmode
// [event]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/event
// [lockgraph]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/lockgraph
// [frame]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/frame
// [label]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/label
// [trace]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/trace
// [stats]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/stats
// [oid]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/oid
// [cache]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/cache
// [archive]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/archive
// [observability]: https://pkg.go.dev/github.com/matzehuels/pglocktrace/pkg/observability
package pkg
