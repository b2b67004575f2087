package layout

import (
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/core/layout/octree"
)

// Stats summarizes a [Minimizer.Minimize] run.
type Stats struct {
	Iterations int     // iterations performed
	Moves      int     // accepted node moves over all iterations
	Energy     float64 // total energy of the final layout

	// EnergyTrace holds the total energy after each iteration, measured
	// with the exponents in effect for that iteration.
	EnergyTrace []float64
}

// separation is the offset, relative to the distance from the origin, by
// which a node sharing a position with a lower-indexed node is moved aside
// before a concurrent pass.
const separation = 1e-6

// goldenAngle spreads successive offsets around the circle.
var goldenAngle = math.Pi * (3 - math.Sqrt(5))

type link struct {
	to     int
	weight float64
}

// Minimizer moves nodes toward a minimum of the LinLog energy
//
//	sum over edges of w * d^a/a  -  sum over node pairs of R * w_u * w_v * d^r/r
//
// plus a weak gravitation toward the barycenter, where x^0/0 reads as ln x.
// Repulsion between all pairs is approximated with a Barnes-Hut octree.
//
// A Minimizer is bound to one node and edge list. It is not safe for
// concurrent use.
type Minimizer struct {
	opts    Options
	names   []string
	weights []float64
	links   [][]link

	repuFactor float64
	gravFactor float64

	// Current exponents. They differ from opts while annealing.
	attrExp float64
	repuExp float64
}

// NewMinimizer prepares a minimizer for the given graph snapshot. Node
// weights act as repulsion strengths. Edges are attached to their source
// node; edges whose endpoints are not in nodes are ignored.
func NewMinimizer(nodes []graph.Node, edges []graph.Edge, opts Options) *Minimizer {
	m := &Minimizer{
		opts:    opts,
		names:   make([]string, len(nodes)),
		weights: make([]float64, len(nodes)),
		links:   make([][]link, len(nodes)),
		attrExp: opts.AttractionExponent,
		repuExp: opts.RepulsionExponent,
	}
	index := make(map[string]int, len(nodes))
	var repuSum float64
	for i, n := range nodes {
		m.names[i] = n.Name
		m.weights[i] = n.Weight
		index[n.Name] = i
		repuSum += n.Weight
	}
	var attrSum float64
	for _, e := range edges {
		s, ok := index[e.Source.Name]
		if !ok {
			continue
		}
		t, ok := index[e.Target.Name]
		if !ok {
			continue
		}
		m.links[s] = append(m.links[s], link{to: t, weight: e.Weight})
		attrSum += e.Weight
	}
	m.initFactors(attrSum, repuSum)
	return m
}

// initFactors scales repulsion and gravitation so that the equilibrium
// distances do not depend on the total edge and node weight.
func (m *Minimizer) initFactors(attrSum, repuSum float64) {
	a, r := m.opts.AttractionExponent, m.opts.RepulsionExponent
	if attrSum > 0 && repuSum > 0 {
		density := attrSum / (repuSum * repuSum)
		m.repuFactor = density * math.Pow(repuSum, 0.5*(a-r))
		m.gravFactor = density * repuSum * math.Pow(m.opts.Gravity, a-r)
		return
	}
	m.repuFactor = 1
	m.gravFactor = m.opts.Gravity
}

// anneal sets the exponents for the given step. Long runs start with
// flatter exponents, which untangles the layout before the target model
// takes over for the final 10% of iterations.
func (m *Minimizer) anneal(step, iterations int) {
	a, r := m.opts.AttractionExponent, m.opts.RepulsionExponent
	m.attrExp, m.repuExp = a, r
	if iterations < 50 || r >= 1 {
		return
	}
	s, n := float64(step), float64(iterations)
	switch {
	case s <= 0.6*n:
		m.attrExp = a + 1.1*(1-r)
		m.repuExp = r + 0.9*(1-r)
	case s <= 0.9*n:
		f := (0.9 - s/n) / 0.3
		m.attrExp = a + 1.1*(1-r)*f
		m.repuExp = r + 0.9*(1-r)*f
	}
}

// Minimize runs iterations passes over all nodes and writes the final
// positions back into p. Every node must already have a position (see
// [InitialPositions]); missing ones start at the origin. Graphs with fewer
// than two nodes are left untouched.
func (m *Minimizer) Minimize(p Positions, iterations int) Stats {
	n := len(m.names)
	if n <= 1 || iterations <= 0 {
		return Stats{Energy: m.Energy(p)}
	}

	pos := make([]Vector, n)
	for i, name := range m.names {
		pos[i] = p[name]
	}

	stats := Stats{EnergyTrace: make([]float64, 0, iterations)}
	for step := range iterations {
		m.anneal(step, iterations)
		if m.opts.Parallel() {
			separate(pos)
		}
		bary := m.barycenter(pos)
		tree := m.buildTree(pos)
		if m.opts.Parallel() {
			stats.Moves += m.jacobiPass(tree, pos, bary, m.workers())
		} else {
			stats.Moves += m.gaussSeidelPass(tree, pos, bary)
		}
		stats.Iterations++
		stats.EnergyTrace = append(stats.EnergyTrace, m.energy(pos))
	}

	for i, name := range m.names {
		p[name] = pos[i]
	}
	stats.Energy = stats.EnergyTrace[len(stats.EnergyTrace)-1]
	return stats
}

// separate moves every node that shares its position with a lower-indexed
// node by a small index-dependent offset in the xy plane. Against a frozen
// tree such nodes would otherwise compute identical moves forever.
func separate(pos []Vector) {
	seen := make(map[Vector]struct{}, len(pos))
	for i, p := range pos {
		if _, dup := seen[p]; dup {
			r := separation * math.Max(1, p.Norm())
			a := float64(i) * goldenAngle
			p = Vector{p[0] + r*math.Cos(a), p[1] + r*math.Sin(a), p[2]}
			pos[i] = p
		}
		seen[p] = struct{}{}
	}
}

func (m *Minimizer) workers() int {
	if m.opts.Workers < 0 {
		return runtime.GOMAXPROCS(0)
	}
	return m.opts.Workers
}

// gaussSeidelPass moves nodes in order; each move is visible to the next.
func (m *Minimizer) gaussSeidelPass(tree *octree.Tree, pos []Vector, bary Vector) int {
	moves := 0
	for i := range pos {
		home := pos[i]
		next, ok := m.step(i, home, pos, tree, bary)
		if !ok {
			continue
		}
		tree.Move(octree.Body{Index: i, Pos: home, Mass: m.weights[i]}, next)
		pos[i] = next
		moves++
	}
	return moves
}

// jacobiPass computes every move against the same frozen positions and
// tree, then applies them together. The result does not depend on the
// number of workers.
func (m *Minimizer) jacobiPass(tree *octree.Tree, pos []Vector, bary Vector, workers int) int {
	n := len(pos)
	next := slices.Clone(pos)
	moved := make([]bool, n)

	chunk := max(1, n/(workers*4))
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				next[i], moved[i] = m.step(i, pos[i], pos, tree, bary)
			}
			return nil
		})
	}
	_ = g.Wait()

	moves := 0
	for i := range pos {
		if moved[i] {
			pos[i] = next[i]
			moves++
		}
	}
	return moves
}

// step computes the improved position of node i currently at home.
func (m *Minimizer) step(i int, home Vector, pos []Vector, tree *octree.Tree, bary Vector) (Vector, bool) {
	ex := octree.Exclusion{Index: i, Home: home, Mass: m.weights[i]}
	dir := m.direction(i, home, pos, tree, bary, ex)
	if dir == (Vector{}) || !dir.IsFinite() {
		return home, false
	}
	return lineSearch(home, dir, func(q Vector) float64 {
		return m.nodeEnergy(i, q, pos, tree, bary, ex)
	})
}

// lineSearch tries multiples of dir/32, halving from 32 down while the
// shorter step keeps improving and doubling past 32 while the longer step
// keeps improving, and returns the best position found.
func lineSearch(p, dir Vector, energy func(Vector) float64) (Vector, bool) {
	best := energy(p)
	if math.IsNaN(best) {
		best = math.Inf(1)
	}
	bestMul := 0
	unit := dir.Scale(1.0 / 32)
	try := func(mul int) {
		q := p.Add(unit.Scale(float64(mul)))
		if !q.IsFinite() {
			return
		}
		if e := energy(q); e < best {
			best, bestMul = e, mul
		}
	}
	for mul := 32; mul >= 1 && (bestMul == 0 || bestMul/2 == mul); mul /= 2 {
		try(mul)
	}
	for mul := 64; mul <= 128 && bestMul == mul/2; mul *= 2 {
		try(mul)
	}
	if bestMul == 0 {
		return p, false
	}
	return p.Add(unit.Scale(float64(bestMul))), true
}

func (m *Minimizer) barycenter(pos []Vector) Vector {
	var sum Vector
	var total float64
	for i, p := range pos {
		sum = sum.Add(p.Scale(m.weights[i]))
		total += m.weights[i]
	}
	if total == 0 {
		return Vector{}
	}
	return sum.Scale(1 / total)
}

func (m *Minimizer) buildTree(pos []Vector) *octree.Tree {
	bodies := make([]octree.Body, len(pos))
	for i, p := range pos {
		bodies[i] = octree.Body{Index: i, Pos: p, Mass: m.weights[i]}
	}
	return octree.Build(bodies)
}
