package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/linlog/pkg/core/cluster"
	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/core/layout"
	"github.com/matzehuels/linlog/pkg/observability"
)

// Compute lays out and clusters adj. It never fails: invalid options must
// be rejected with [Options.Validate] beforehand.
//
// Positions start from a seeded random placement. With opts.Incremental,
// nodes present in prev keep their previous position and only new nodes are
// seeded, so small edits move the picture only a little. prev is not
// modified.
func Compute(ctx context.Context, adj graph.Adjacency, prev layout.Positions, opts Options) *Result {
	logger := opts.logger()
	hooks := observability.Pipeline()

	sym := graph.Symmetrize(adj)
	nodes, edges := sym.Nodes(), sym.Edges()
	dims := layout.Dimensions(opts.Dimensions)

	result := &Result{
		ID:         uuid.NewString(),
		Nodes:      nodes,
		Edges:      edges,
		Dimensions: opts.Dimensions,
		Stats:      Stats{NodeCount: len(nodes), EdgeCount: len(edges)},
	}

	hooks.OnLayoutStart(ctx, len(nodes), len(edges))
	start := time.Now()

	rng := layout.NewRand(opts.Seed)
	pos := make(layout.Positions, len(nodes))
	if opts.Incremental {
		for _, n := range nodes {
			if v, ok := prev[n.Name]; ok {
				pos[n.Name] = v
			}
		}
	}
	result.Stats.Seeded = layout.Fill(pos, nodes, rng, dims)

	stats := layout.NewMinimizer(nodes, edges, opts.LayoutOptions()).Minimize(pos, opts.Iterations)
	result.Positions = pos
	result.Energy = stats.Energy
	result.Stats.Iterations = stats.Iterations
	result.Stats.Moves = stats.Moves
	result.Stats.LayoutTime = time.Since(start)
	hooks.OnLayoutComplete(ctx, len(nodes), stats.Iterations, stats.Energy, result.Stats.LayoutTime, nil)

	logger.Debug("minimized energy",
		"nodes", len(nodes),
		"edges", len(edges),
		"iterations", stats.Iterations,
		"moves", stats.Moves,
		"energy", stats.Energy,
		"duration", result.Stats.LayoutTime)

	start = time.Now()
	result.Clusters = cluster.Optimize(nodes, edges, opts.ClusterOptions())
	result.Modularity = cluster.Modularity(nodes, edges, result.Clusters, opts.IgnoreLoops)
	result.Stats.ClusterTime = time.Since(start)
	hooks.OnClusterComplete(ctx, result.Clusters.Count(), result.Modularity, result.Stats.ClusterTime)

	logger.Debug("clustered nodes",
		"clusters", result.Clusters.Count(),
		"modularity", result.Modularity,
		"duration", result.Stats.ClusterTime)

	return result
}
