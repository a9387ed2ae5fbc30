// Package frame turns lock graph states into Graphviz DOT frames and
// assembles them into an animation.
//
// Each [Frame] is an independent DOT description of the graph at one point
// in the event stream. Query vertices are drawn as gray filled nodes labeled
// with the query text, object vertices as light gray boxes whose label is
// wrapped with [label.Wrap]. Edge labels list the held modes in ascending
// ordinal order. Node ids are query_<pid> for queries and "obj:<name>" for
// objects, so the two kinds never share an id.
//
// The graph attribute mindist shrinks as the graph grows so that larger
// graphs stay readable under the circo layout; see [MinDist].
//
// A [Recorder] collects frames as a [lockgraph.Snapshotter]. [WriteHTML]
// embeds all frames into a self-contained page that animates them with
// d3-graphviz, and [RenderSVG] renders a single frame with the embedded
// Graphviz library.
package frame
