package octree

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBodies(n int, seed uint64, is3D bool) []Body {
	rng := rand.New(rand.NewPCG(seed, seed))
	bodies := make([]Body, n)
	for i := range bodies {
		p := Vector{rng.Float64() - 0.5, rng.Float64() - 0.5, 0}
		if is3D {
			p[2] = rng.Float64() - 0.5
		}
		bodies[i] = Body{Index: i, Pos: p, Mass: 0.5 + rng.Float64()*3}
	}
	return bodies
}

func TestBuildConservesMass(t *testing.T) {
	for _, tc := range []struct {
		name string
		n    int
		is3D bool
	}{
		{"empty", 0, false},
		{"single", 1, false},
		{"2d", 200, false},
		{"3d", 200, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bodies := randomBodies(tc.n, 7, tc.is3D)
			tree := Build(bodies)

			var sum float64
			var centroid Vector
			for _, b := range bodies {
				sum += b.Mass
				centroid = centroid.Add(b.Pos.Scale(b.Mass))
			}
			assert.InDelta(t, sum, tree.Mass(), 1e-9)
			assert.Equal(t, tc.n, tree.Len())
			if sum > 0 {
				centroid = centroid.Scale(1 / sum)
				for d := range 3 {
					assert.InDelta(t, centroid[d], tree.Center()[d], 1e-9)
				}
			}
		})
	}
}

func TestZeroMassBodiesSkipped(t *testing.T) {
	tree := Build([]Body{
		{Index: 0, Pos: Vector{0, 0, 0}, Mass: 0},
		{Index: 1, Pos: Vector{1, 1, 0}, Mass: 2},
	})
	assert.Equal(t, 1, tree.Len())
	assert.InDelta(t, 2, tree.Mass(), 1e-12)

	var seen int
	tree.Visit(Vector{5, 5, 0}, 0, NoExclusion, func(Vector, float64) { seen++ })
	assert.Equal(t, 1, seen)
}

func TestCoincidentBodies(t *testing.T) {
	bodies := []Body{
		{Index: 0, Pos: Vector{0.25, 0.25, 0}, Mass: 1},
		{Index: 1, Pos: Vector{0.25, 0.25, 0}, Mass: 1},
		{Index: 2, Pos: Vector{0.25, 0.25, 0}, Mass: 1},
		{Index: 3, Pos: Vector{-1, -1, 0}, Mass: 1},
	}
	tree := Build(bodies)
	require.InDelta(t, 4, tree.Mass(), 1e-12)

	var mass float64
	tree.Visit(Vector{}, 0, Exclude(bodies[1]), func(_ Vector, m float64) { mass += m })
	assert.InDelta(t, 3, mass, 1e-12)

	tree.Remove(bodies[0])
	tree.Remove(bodies[2])
	assert.InDelta(t, 2, tree.Mass(), 1e-9)
}

func TestRemoveAndMove(t *testing.T) {
	bodies := randomBodies(64, 3, false)
	tree := Build(bodies)

	moved := tree.Move(bodies[10], Vector{0.4, -0.3, 0})
	bodies[10] = moved
	tree.Remove(bodies[20])
	bodies = append(bodies[:20], bodies[21:]...)

	var sum float64
	var centroid Vector
	for _, b := range bodies {
		sum += b.Mass
		centroid = centroid.Add(b.Pos.Scale(b.Mass))
	}
	centroid = centroid.Scale(1 / sum)

	assert.Equal(t, 63, tree.Len())
	assert.InDelta(t, sum, tree.Mass(), 1e-9)
	for d := range 2 {
		assert.InDelta(t, centroid[d], tree.Center()[d], 1e-9)
	}

	for _, b := range bodies {
		tree.Remove(b)
	}
	assert.Equal(t, 0, tree.Len())
	assert.InDelta(t, 0, tree.Mass(), 1e-9)
}

func TestVisitExactMatchesBruteForce(t *testing.T) {
	bodies := randomBodies(50, 11, true)
	tree := Build(bodies)
	self := bodies[5]

	var mass float64
	var moment Vector
	tree.Visit(self.Pos, 0, Exclude(self), func(c Vector, m float64) {
		mass += m
		moment = moment.Add(c.Scale(m))
	})

	var wantMass float64
	var wantMoment Vector
	for _, b := range bodies {
		if b.Index == self.Index {
			continue
		}
		wantMass += b.Mass
		wantMoment = wantMoment.Add(b.Pos.Scale(b.Mass))
	}
	assert.InDelta(t, wantMass, mass, 1e-9)
	for d := range 3 {
		assert.InDelta(t, wantMoment[d], moment[d], 1e-9)
	}
}

func TestVisitExclusionWhenSummarized(t *testing.T) {
	bodies := randomBodies(100, 5, false)
	tree := Build(bodies)
	self := bodies[42]

	// Query far away so whole subtrees are summarized, including those
	// that contain the excluded body.
	far := Vector{1000, 1000, 0}
	var mass float64
	tree.Visit(far, 0.5, Exclude(self), func(_ Vector, m float64) { mass += m })

	assert.InDelta(t, tree.Mass()-self.Mass, mass, 1e-9)
}

func TestRepulsionExactMatchesBruteForce(t *testing.T) {
	bodies := randomBodies(300, 9, false)
	tree := Build(bodies)
	self := bodies[0]

	exact := tree.Repulsion(self.Pos, 0, 0, Exclude(self))

	var brute Vector
	for _, b := range bodies[1:] {
		diff := self.Pos.Sub(b.Pos)
		brute = brute.Add(diff.Scale(b.Mass * math.Pow(diff.Norm(), -2)))
	}
	for d := range 2 {
		assert.InDelta(t, brute[d], exact[d], 1e-6*math.Max(1, math.Abs(brute[d])))
	}
}

func TestRepulsionApproximation(t *testing.T) {
	bodies := randomBodies(300, 9, false)
	tree := Build(bodies)
	probe := Vector{2, 0.3, 0}

	exact := tree.Repulsion(probe, 0, 0, NoExclusion)
	approx := tree.Repulsion(probe, 0.3, 0, NoExclusion)

	rel := approx.Sub(exact).Norm() / exact.Norm()
	assert.Less(t, rel, 0.1)
}

func TestRepulsionCoincidentIsZero(t *testing.T) {
	tree := Build([]Body{
		{Index: 0, Pos: Vector{0, 0, 0}, Mass: 1},
		{Index: 1, Pos: Vector{0, 0, 0}, Mass: 1},
	})
	f := tree.Repulsion(Vector{}, 0.5, 0, Exclude(Body{Index: 0, Mass: 1}))
	assert.Equal(t, Vector{}, f)
}

func TestTwoDimensionalStaysFlat(t *testing.T) {
	bodies := randomBodies(40, 1, false)
	tree := Build(bodies)
	assert.Equal(t, 0.0, tree.Center()[2])
	f := tree.Repulsion(Vector{0.1, 0.1, 0}, 0.5, 0, NoExclusion)
	assert.Equal(t, 0.0, f[2])
}

func TestVectorOps(t *testing.T) {
	v := Vector{3, 4, 0}
	assert.Equal(t, 5.0, v.Norm())
	assert.Equal(t, Vector{6, 8, 0}, v.Scale(2))
	assert.Equal(t, 5.0, v.Dist(Vector{}))
	assert.True(t, v.IsFinite())
	assert.False(t, Vector{math.NaN(), 0, 0}.IsFinite())
}
