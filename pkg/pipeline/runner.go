package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linlog/pkg/cache"
	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/errors"
	graphio "github.com/matzehuels/linlog/pkg/io"
	"github.com/matzehuels/linlog/pkg/observability"
)

const keyTypeLayout = "layout"

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// ComputeLayout validates opts, then returns the cached layout for g or
// computes and caches a new one. The second result reports a cache hit.
//
// Runs with Seed 0 are random and bypass the cache. Cache failures are
// logged and never fail the run.
func (r *Runner) ComputeLayout(ctx context.Context, g *graph.Graph, opts Options) (*Result, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)

	var key string
	if opts.Seed != 0 {
		data, err := graphio.MarshalGraph(g)
		if err != nil {
			return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "hash graph")
		}
		key = r.Keyer.LayoutKey(cache.Hash(data), opts.KeyOpts())

		if res, ok := r.lookup(ctx, key, g); ok {
			observability.Cache().OnCacheHit(ctx, keyTypeLayout)
			r.Logger.Debug("layout cache hit", "nodes", len(res.Nodes), "id", res.ID)
			return res, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeLayout)
	}

	res := Compute(ctx, g.Adjacency(), nil, opts)
	r.Logger.Info("computed layout",
		"nodes", res.Stats.NodeCount,
		"edges", res.Stats.EdgeCount,
		"clusters", res.Clusters.Count(),
		"modularity", res.Modularity,
		"duration", res.Stats.LayoutTime+res.Stats.ClusterTime)

	if key != "" {
		r.store(ctx, key, res)
	}
	return res, false, nil
}

func (r *Runner) lookup(ctx context.Context, key string, g *graph.Graph) (*Result, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}
	l, err := graphio.ReadLayout(bytes.NewReader(data))
	if err != nil {
		// Stale or corrupt entry; recompute.
		return nil, false
	}

	sym := g.Symmetric()
	return &Result{
		ID:         l.ID,
		Nodes:      sym.Nodes(),
		Edges:      sym.Edges(),
		Positions:  l.Positions(),
		Clusters:   l.Clusters(),
		Modularity: l.Modularity,
		Energy:     l.Energy,
		Dimensions: l.Dimensions,
		Stats: Stats{
			NodeCount:  len(l.Nodes),
			EdgeCount:  len(sym.Edges()),
			Iterations: l.Iterations,
		},
	}, true
}

func (r *Runner) store(ctx context.Context, key string, res *Result) {
	var buf bytes.Buffer
	if err := graphio.WriteLayout(res.Layout(), &buf); err != nil {
		r.Logger.Warn("encode layout for cache", "err", err)
		return
	}
	err := cache.RetryWithBackoff(ctx, func() error {
		return r.Cache.Set(ctx, key, buf.Bytes(), cache.TTLLayout)
	})
	if err != nil {
		r.Logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyTypeLayout, buf.Len())
}

// Invalidate removes the cached layout of g for opts.
func (r *Runner) Invalidate(ctx context.Context, g *graph.Graph, opts Options) error {
	data, err := graphio.MarshalGraph(g)
	if err != nil {
		return fmt.Errorf("hash graph: %w", err)
	}
	return r.Cache.Delete(ctx, r.Keyer.LayoutKey(cache.Hash(data), opts.KeyOpts()))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
