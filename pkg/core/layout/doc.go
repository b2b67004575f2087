// Package layout computes node coordinates that approximately minimize the
// LinLog energy of a weighted graph.
//
// # Energy Model
//
// Connected nodes attract with a force that grows with the attraction
// exponent (1 by default, so edge energy grows linearly with length) and all
// node pairs repel with strength proportional to the product of their
// weights (logarithmic for the default repulsion exponent 0). Layouts that
// minimize this energy place densely connected groups close together and
// separate sparsely connected ones, which makes clusters visible. A weak
// gravitation toward the barycenter keeps disconnected components in view.
//
// # Usage
//
// Derive the node and edge lists from a symmetrized graph, seed positions,
// and run the minimizer:
//
//	sym := g.Symmetric()
//	nodes, edges := sym.Nodes(), sym.Edges()
//	pos := layout.InitialPositions(nodes, layout.NewRand(42), layout.Planar)
//	stats := layout.NewMinimizer(nodes, edges, layout.DefaultOptions()).Minimize(pos, 100)
//
// Minimize mutates pos in place.
//
// # Approximation
//
// Repulsion is summed over a Barnes-Hut octree (see package octree) with
// opening threshold [Options.Theta]. Each node moves along a Newton-like
// direction chosen by a short line search, so every accepted move lowers
// that node's energy under the current approximation.
//
// # Determinism
//
// With an explicit seed the result depends only on the graph, the options
// and the iteration count. Parallel runs ([Options.Workers] > 1) use a
// different update order than sequential runs but are themselves
// independent of the worker count.
package layout
