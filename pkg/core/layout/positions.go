package layout

import (
	"maps"
	"math/rand/v2"

	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/core/layout/octree"
)

// Vector is a 3-component position. Two-dimensional layouts keep z = 0.
type Vector = octree.Vector

// Positions maps node name to position. The minimizer mutates it in place.
type Positions map[string]Vector

// Clone returns a copy of p.
func (p Positions) Clone() Positions {
	return maps.Clone(p)
}

// Distance returns the Euclidean distance between two positioned nodes.
// The second result is false if either node has no position.
func (p Positions) Distance(a, b string) (float64, bool) {
	pa, ok := p[a]
	if !ok {
		return 0, false
	}
	pb, ok := p[b]
	if !ok {
		return 0, false
	}
	return pa.Dist(pb), true
}

// Dimensions selects a planar or spatial layout.
type Dimensions int

const (
	// Planar layouts keep every z coordinate at 0.
	Planar Dimensions = 2
	// Spatial layouts use all three coordinates.
	Spatial Dimensions = 3
)

// NewRand returns a PCG-backed generator. A zero seed draws a random one,
// so layouts are only reproducible when callers pass an explicit seed.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// InitialPositions places every node uniformly at random in [-0.5, 0.5)
// per component, drawing coordinates in node order.
func InitialPositions(nodes []graph.Node, rng *rand.Rand, dims Dimensions) Positions {
	p := make(Positions, len(nodes))
	Fill(p, nodes, rng, dims)
	return p
}

// Fill seeds a random position for every node that does not have one yet
// and returns the number of nodes it placed. Existing positions are kept.
func Fill(p Positions, nodes []graph.Node, rng *rand.Rand, dims Dimensions) int {
	placed := 0
	for _, n := range nodes {
		if _, ok := p[n.Name]; ok {
			continue
		}
		var v Vector
		v[0] = rng.Float64() - 0.5
		v[1] = rng.Float64() - 0.5
		if dims == Spatial {
			v[2] = rng.Float64() - 0.5
		}
		p[n.Name] = v
		placed++
	}
	return placed
}
