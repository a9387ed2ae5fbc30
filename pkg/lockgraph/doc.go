// Package lockgraph maintains the bipartite graph of queries and the
// database objects they hold locks on.
//
// # Graph
//
// A [Graph] has two vertex kinds. Query vertices are keyed by backend pid
// and labeled with the query text. Object vertices are keyed by their
// display name, so two OIDs that resolve to the same name share a vertex.
// An [Edge] runs from a query to an object and carries the set of lock
// modes the query currently holds on that object as a [lockmode.Set].
//
// Vertices and edges are kept in insertion order, which makes every
// snapshot of the graph deterministic.
//
// # State machine
//
// A [Machine] folds query begin, local grant and local ungrant events into
// the graph:
//
//   - a query begin adds the query vertex and takes a snapshot
//   - a grant on a new query/object pair creates the edge and takes a
//     snapshot; a grant on an existing edge merges the mode silently
//   - an ungrant removes the mode, deletes the edge once it is empty and
//     the object vertex once it is isolated, and always takes a snapshot
//
// Releasing a mode that is not held leaves the edge unchanged and is
// reported as an ORPHAN_UNGRANT diagnostic. Processing continues.
//
// Snapshots are delegated to a [Snapshotter], usually a frame.Recorder
// that turns each state into a DOT description.
package lockgraph
