package cli

import (
	"github.com/spf13/pflag"

	"github.com/matzehuels/linlog/pkg/pipeline"
)

// optionFlags binds the layout options to flags. Values from the config
// file apply unless the flag was given explicitly.
type optionFlags struct {
	opts pipeline.Options
	fs   *pflag.FlagSet
}

func newOptionFlags(fs *pflag.FlagSet) *optionFlags {
	f := &optionFlags{opts: pipeline.DefaultOptions(), fs: fs}
	o := &f.opts
	fs.IntVarP(&o.Iterations, "iterations", "n", o.Iterations, "minimizer iterations (50 or more anneal the exponents)")
	fs.Float64Var(&o.Theta, "theta", o.Theta, "Barnes-Hut accuracy (0 computes exact repulsion)")
	fs.Float64Var(&o.AttractionExponent, "attraction", o.AttractionExponent, "attraction exponent a (a > r)")
	fs.Float64Var(&o.RepulsionExponent, "repulsion", o.RepulsionExponent, "repulsion exponent r")
	fs.Float64Var(&o.Gravity, "gravity", o.Gravity, "gravitation towards the barycenter")
	fs.IntVarP(&o.Dimensions, "dimensions", "d", o.Dimensions, "layout dimensions: 2 or 3")
	fs.Uint64Var(&o.Seed, "seed", o.Seed, "random seed for initial positions (0 picks a random seed)")
	fs.IntVarP(&o.Workers, "workers", "w", o.Workers, "parallel force workers (0 sequential, -1 all CPUs)")
	fs.BoolVar(&o.MultiLevel, "multi-level", o.MultiLevel, "aggregate clusters and repeat the local search")
	fs.BoolVar(&o.IgnoreLoops, "ignore-loops", o.IgnoreLoops, "ignore self-loops when clustering")
	return f
}

// resolve returns base with every explicitly set flag applied on top.
func (f *optionFlags) resolve(base pipeline.Options) pipeline.Options {
	set := func(name string, apply func()) {
		if f.fs.Changed(name) {
			apply()
		}
	}
	set("iterations", func() { base.Iterations = f.opts.Iterations })
	set("theta", func() { base.Theta = f.opts.Theta })
	set("attraction", func() { base.AttractionExponent = f.opts.AttractionExponent })
	set("repulsion", func() { base.RepulsionExponent = f.opts.RepulsionExponent })
	set("gravity", func() { base.Gravity = f.opts.Gravity })
	set("dimensions", func() { base.Dimensions = f.opts.Dimensions })
	set("seed", func() { base.Seed = f.opts.Seed })
	set("workers", func() { base.Workers = f.opts.Workers })
	set("multi-level", func() { base.MultiLevel = f.opts.MultiLevel })
	set("ignore-loops", func() { base.IgnoreLoops = f.opts.IgnoreLoops })
	return base
}
