// Package pkg provides the libraries behind linlog, a layout and clustering
// engine for weighted graphs.
//
// # Overview
//
// linlog places the nodes of a weighted graph so that densely connected
// groups end up close together and sparsely connected groups far apart, by
// minimizing the LinLog energy with a Barnes-Hut approximation. The same
// graph is partitioned into clusters by greedy modularity optimization.
//
// # Architecture
//
// The typical data flow:
//
//	JSON / CSV edge list
//	         ↓
//	    [io] package (decode + validate)
//	         ↓
//	    [core/graph] package (directed weighted graph, symmetrized)
//	         ↓
//	    [core/layout] + [core/cluster] (positions, clusters)
//	         ↓
//	    Layout JSON / Graphviz DOT
//
// # Quick Start
//
//	import (
//	    "context"
//	    "fmt"
//
//	    "github.com/matzehuels/linlog/pkg/core/graph"
//	    "github.com/matzehuels/linlog/pkg/pipeline"
//	)
//
//	g := graph.New()
//	_ = g.AddEdge("a", "b", 2)
//	_ = g.Link("b", "c")
//
//	res := pipeline.Compute(context.Background(), g.Adjacency(), nil, pipeline.DefaultOptions())
//	fmt.Println(res.Positions["a"], res.Clusters["a"], res.Modularity)
//
// # Main Packages
//
// ## Core
//
// [core/graph] - Directed weighted graph with change listeners, and its
// symmetric form where each undirected weight is the sum of both directions.
//
// [core/layout] - Energy minimizer. Each pass moves every node along its
// energy gradient with a short line search. [core/layout/octree] answers
// repulsion queries in O(log n) per node.
//
// [core/cluster] - Modularity optimizer with an optional multi-level
// refinement.
//
// ## Live Layouts
//
// [engine] - Keeps a layout in step with a graph that is being edited.
// Edits can be batched so that bulk changes cause a single relayout.
//
// [session] - Engines owned by API clients, with expiry.
//
// ## Infrastructure
//
// [pipeline] - Symmetrize, seed, minimize and cluster in one call, plus a
// [pipeline.Runner] that caches results. Used by CLI, API and engine.
//
// [cache] - Layout cache with file, Redis, MongoDB and null backends.
//
// [api] - HTTP API with a websocket stream of relayouts.
//
// [observability] - Hook interfaces and a Prometheus collector.
//
// [errors] - Coded errors shared by all entry points.
package pkg
