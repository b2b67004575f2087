package layout

import (
	"math"

	"github.com/matzehuels/linlog/pkg/core/layout/octree"
)

// potential returns d^e/e, or ln d for e = 0.
func potential(d, e float64) float64 {
	if e == 0 {
		return math.Log(d)
	}
	return math.Pow(d, e) / e
}

func clampDist(d float64) float64 {
	return math.Max(d, octree.MinDistance)
}

// nodeEnergy is the energy of node i if it were placed at p, with every
// other node where pos and tree put it.
func (m *Minimizer) nodeEnergy(i int, p Vector, pos []Vector, tree *octree.Tree, bary Vector, ex octree.Exclusion) float64 {
	w := m.weights[i]
	var e float64
	if w > 0 {
		tree.Visit(p, m.opts.Theta, ex, func(c Vector, mass float64) {
			e -= m.repuFactor * w * mass * potential(clampDist(p.Dist(c)), m.repuExp)
		})
		e += m.gravFactor * m.repuFactor * w * potential(clampDist(p.Dist(bary)), m.attrExp)
	}
	for _, l := range m.links[i] {
		if l.to == i {
			continue
		}
		e += l.weight * potential(clampDist(p.Dist(pos[l.to])), m.attrExp)
	}
	return e
}

// direction returns the Newton-like step for node i at p: the summed force
// divided by an estimate of the second derivative, capped at an eighth of
// the tree width.
func (m *Minimizer) direction(i int, p Vector, pos []Vector, tree *octree.Tree, bary Vector, ex octree.Exclusion) Vector {
	w := m.weights[i]
	var dir Vector
	var curv float64

	if w > 0 {
		tree.Visit(p, m.opts.Theta, ex, func(c Vector, mass float64) {
			d := p.Dist(c)
			if d == 0 {
				return
			}
			t := m.repuFactor * w * mass * math.Pow(d, m.repuExp-2)
			dir = dir.Sub(c.Sub(p).Scale(t))
			curv += t * math.Abs(m.repuExp-1)
		})
		if d := p.Dist(bary); d > 0 {
			t := m.gravFactor * m.repuFactor * w * math.Pow(d, m.attrExp-2)
			dir = dir.Add(bary.Sub(p).Scale(t))
			curv += t * math.Abs(m.attrExp-1)
		}
	}
	for _, l := range m.links[i] {
		if l.to == i {
			continue
		}
		q := pos[l.to]
		d := p.Dist(q)
		if d == 0 {
			continue
		}
		t := l.weight * math.Pow(d, m.attrExp-2)
		dir = dir.Add(q.Sub(p).Scale(t))
		curv += t * math.Abs(m.attrExp-1)
	}

	if curv == 0 || math.IsNaN(curv) {
		return Vector{}
	}
	dir = dir.Scale(1 / curv)
	if limit, n := tree.Width()/8, dir.Norm(); n > limit {
		dir = dir.Scale(limit / n)
	}
	return dir
}

// Energy returns the total energy of the layout p: the sum over nodes of
// their individual energies, so every pair term is counted from both ends.
// Nodes without a position are taken to be at the origin.
func (m *Minimizer) Energy(p Positions) float64 {
	pos := make([]Vector, len(m.names))
	for i, name := range m.names {
		pos[i] = p[name]
	}
	return m.energy(pos)
}

func (m *Minimizer) energy(pos []Vector) float64 {
	bary := m.barycenter(pos)
	tree := m.buildTree(pos)

	var total float64
	for i := range pos {
		ex := octree.Exclusion{Index: i, Home: pos[i], Mass: m.weights[i]}
		total += m.nodeEnergy(i, pos[i], pos, tree, bary, ex)
	}
	return total
}
