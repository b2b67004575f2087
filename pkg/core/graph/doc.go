// Package graph provides the weighted directed graph that layout and
// clustering operate on.
//
// # Overview
//
// A [Graph] stores at most one weight per ordered (source, target) pair in a
// nested map keyed by node name. Targets are not required to appear as keys:
// adding an edge auto-adds only its source. The physics and clustering code
// never read the live graph directly. They consume immutable snapshots
// produced by [Graph.Adjacency] and [Symmetrize]:
//
//	g := graph.New()
//	g.AddEdge("a", "b", 2)
//	g.AddEdge("b", "a", 3)
//
//	sym := graph.Symmetrize(g.Adjacency()) // a<->b weight 5 both ways
//	nodes := sym.Nodes()                    // [{a 5} {b 5}]
//	edges := sym.Edges()                    // (a,b,5) (b,a,5)
//
// # Change Notification
//
// Every mutation that changes the graph is announced to subscribed
// [Listener]s synchronously and in registration order. [Graph.AddEdge] on an
// unknown source announces [NodeAdded] first and then [EdgeAdded].
// Re-adding an existing node announces nothing.
//
// # Concurrency
//
// Graph is not safe for concurrent use. Callers that share a graph between
// goroutines must serialize access themselves.
package graph
