// Package pipeline runs the symmetrize, layout and cluster stages on a
// weighted graph.
//
// This package is shared by the CLI, the API server and live engines so
// that every entry point applies the same defaults, validation and caching.
//
// # Stages
//
//  1. Symmetrize: merge each directed edge with its reverse
//  2. Layout: seed positions and minimize the LinLog energy
//  3. Cluster: group nodes by modularity
//
// # Usage
//
// One-shot computation without caching:
//
//	opts := pipeline.DefaultOptions()
//	opts.Iterations = 100
//	result := pipeline.Compute(ctx, g.Adjacency(), nil, opts)
//
// With a cache:
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, hit, err := runner.ComputeLayout(ctx, g, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/linlog/pkg/cache"
	"github.com/matzehuels/linlog/pkg/core/cluster"
	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/core/layout"
	"github.com/matzehuels/linlog/pkg/errors"
	graphio "github.com/matzehuels/linlog/pkg/io"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Engine
// =============================================================================

const (
	// DefaultIterations is the number of minimizer passes. Runs of 50 or
	// more iterations anneal the exponents.
	DefaultIterations = 10

	// DefaultDimensions is a planar layout.
	DefaultDimensions = int(layout.Planar)

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures a layout run. It decodes from JSON request bodies and
// from the [layout] section of the config file.
type Options struct {
	Iterations         int     `json:"iterations" toml:"iterations" validate:"gte=0,lte=100000"`
	Theta              float64 `json:"theta" toml:"theta" validate:"gte=0,lte=2"`
	AttractionExponent float64 `json:"attraction_exponent" toml:"attraction_exponent" validate:"gtfield=RepulsionExponent"`
	RepulsionExponent  float64 `json:"repulsion_exponent" toml:"repulsion_exponent" validate:"gte=-10,lte=10"`
	Gravity            float64 `json:"gravity" toml:"gravity" validate:"gte=0"`
	Dimensions         int     `json:"dimensions" toml:"dimensions" validate:"oneof=2 3"`
	Seed               uint64  `json:"seed" toml:"seed"` // 0 draws a random seed
	Workers            int     `json:"workers" toml:"workers" validate:"gte=-1,lte=1024"`

	// Clustering switches. The config file sets them in its [cluster]
	// section.
	MultiLevel  bool `json:"multi_level" toml:"-"`
	IgnoreLoops bool `json:"ignore_loops" toml:"-"`

	// Incremental keeps the previous positions of known nodes when an
	// engine relays out after an edit.
	Incremental bool `json:"incremental" toml:"incremental"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-"`
}

// DefaultOptions returns the LinLog defaults.
func DefaultOptions() Options {
	return Options{
		Iterations:         DefaultIterations,
		Theta:              layout.DefaultTheta,
		AttractionExponent: layout.DefaultAttractionExponent,
		RepulsionExponent:  layout.DefaultRepulsionExponent,
		Gravity:            layout.DefaultGravity,
		Dimensions:         DefaultDimensions,
		Seed:               DefaultSeed,
	}
}

// Validate checks every field against its bounds. Errors carry
// [errors.ErrCodeInvalidOptions].
func (o Options) Validate() error {
	return errors.ValidateStruct(o)
}

// LayoutOptions returns the minimizer options.
func (o Options) LayoutOptions() layout.Options {
	return layout.Options{
		AttractionExponent: o.AttractionExponent,
		RepulsionExponent:  o.RepulsionExponent,
		Gravity:            o.Gravity,
		Theta:              o.Theta,
		Workers:            o.Workers,
	}
}

// ClusterOptions returns the modularity optimizer options.
func (o Options) ClusterOptions() cluster.Options {
	return cluster.Options{
		MultiLevel:  o.MultiLevel,
		IgnoreLoops: o.IgnoreLoops,
	}
}

// KeyOpts returns the options that determine the result, for cache keys.
// Only whether Workers selects the parallel scheme matters, not the count.
func (o Options) KeyOpts() cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Iterations:         o.Iterations,
		Theta:              o.Theta,
		AttractionExponent: o.AttractionExponent,
		RepulsionExponent:  o.RepulsionExponent,
		Gravity:            o.Gravity,
		Dimensions:         o.Dimensions,
		Seed:               o.Seed,
		MultiLevel:         o.MultiLevel,
		IgnoreLoops:        o.IgnoreLoops,
		Parallel:           o.LayoutOptions().Parallel(),
	}
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return o.Logger
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of one layout run.
type Result struct {
	// ID identifies the run in API responses and cached layouts.
	ID string

	// Nodes and Edges are the symmetric graph that was laid out.
	Nodes []graph.Node
	Edges []graph.Edge

	Positions  layout.Positions
	Clusters   cluster.Assignment
	Modularity float64
	Energy     float64

	Dimensions int
	Stats      Stats
}

// Stats contains run statistics.
type Stats struct {
	NodeCount   int
	EdgeCount   int
	Iterations  int
	Moves       int
	Seeded      int // nodes that received a fresh random position
	LayoutTime  time.Duration
	ClusterTime time.Duration
}

// Layout converts r into its serialized form.
func (r *Result) Layout() graphio.Layout {
	l := graphio.NewLayout(r.Nodes, r.Edges, r.Positions, r.Clusters)
	l.ID = r.ID
	l.Dimensions = r.Dimensions
	l.Iterations = r.Stats.Iterations
	l.Energy = r.Energy
	l.Modularity = r.Modularity
	return l
}
