// Package octree implements the Barnes-Hut spatial tree used to approximate
// repulsion between all pairs of nodes in O(n log n).
//
// Every cell stores the total mass and the mass-weighted centroid of the
// bodies below it. A walk from a query position treats a cell as one pseudo
// body when width/distance < theta, and descends into its children
// otherwise. Two-dimensional layouts use the same tree with z = 0.
package octree

import (
	"math"
)

// MaxDepth bounds subdivision. Bodies that still share a cell at this depth,
// typically coincident points, are kept together in a bucket.
const MaxDepth = 20

// MinDistance is the smallest distance used by kernels to avoid dividing by
// zero for nearly coincident bodies.
const MinDistance = 1e-9

// Vector is a point or direction in 3-space.
type Vector [3]float64

// Add returns v + w.
func (v Vector) Add(w Vector) Vector {
	return Vector{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vector) Sub(w Vector) Vector {
	return Vector{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns s * v.
func (v Vector) Scale(s float64) Vector {
	return Vector{v[0] * s, v[1] * s, v[2] * s}
}

// Norm returns the Euclidean length of v.
func (v Vector) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Dist returns the Euclidean distance between v and w.
func (v Vector) Dist(w Vector) float64 {
	return v.Sub(w).Norm()
}

// IsFinite reports whether every component is neither NaN nor infinite.
func (v Vector) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Body is a point mass identified by Index.
type Body struct {
	Index int
	Pos   Vector
	Mass  float64
}

// Exclusion names the body whose own contribution must be left out of a
// walk. Home is where the body currently sits in the tree. A negative Index
// excludes nothing.
type Exclusion struct {
	Index int
	Home  Vector
	Mass  float64
}

// NoExclusion excludes nothing from a walk.
var NoExclusion = Exclusion{Index: -1}

// Exclude returns the exclusion for b at its current position.
func Exclude(b Body) Exclusion {
	return Exclusion{Index: b.Index, Home: b.Pos, Mass: b.Mass}
}

type cell struct {
	min, max Vector
	center   Vector
	mass     float64

	// Leaf payload. leaf is false for interior cells.
	leaf bool
	body Body

	children [8]*cell
	bucket   []Body
}

func newCell(min, max Vector) *cell {
	return &cell{min: min, max: max}
}

func (c *cell) width() float64 {
	return c.max[0] - c.min[0]
}

func (c *cell) empty() bool {
	return c.mass == 0
}

func (c *cell) mid() Vector {
	return Vector{
		(c.min[0] + c.max[0]) / 2,
		(c.min[1] + c.max[1]) / 2,
		(c.min[2] + c.max[2]) / 2,
	}
}

// octant returns the child index for p: bit d is set when p[d] lies above
// the cell midpoint in dimension d.
func (c *cell) octant(p Vector) int {
	mid := c.mid()
	i := 0
	for d := range 3 {
		if p[d] > mid[d] {
			i |= 1 << d
		}
	}
	return i
}

func (c *cell) child(i int) *cell {
	if c.children[i] != nil {
		return c.children[i]
	}
	mid := c.mid()
	var lo, hi Vector
	for d := range 3 {
		if i&(1<<d) != 0 {
			lo[d], hi[d] = mid[d], c.max[d]
		} else {
			lo[d], hi[d] = c.min[d], mid[d]
		}
	}
	c.children[i] = newCell(lo, hi)
	return c.children[i]
}

func (c *cell) reset() {
	c.center = Vector{}
	c.mass = 0
	c.leaf = false
	c.body = Body{}
	c.children = [8]*cell{}
	c.bucket = nil
}

func (c *cell) insert(b Body, depth int) {
	if c.empty() {
		c.leaf = true
		c.body = b
		c.center = b.Pos
		c.mass = b.Mass
		return
	}
	if c.leaf {
		old := c.body
		c.leaf = false
		c.body = Body{}
		c.place(old, depth)
	}
	total := c.mass + b.Mass
	for d := range 3 {
		c.center[d] = (c.center[d]*c.mass + b.Pos[d]*b.Mass) / total
	}
	c.mass = total
	c.place(b, depth)
}

// place pushes b one level down without touching the aggregate of c.
func (c *cell) place(b Body, depth int) {
	if depth >= MaxDepth {
		c.bucket = append(c.bucket, b)
		return
	}
	c.child(c.octant(b.Pos)).insert(b, depth+1)
}

// remove takes b out of the subtree and reports whether c became empty.
func (c *cell) remove(b Body, depth int) bool {
	if c.empty() {
		return true
	}
	if c.leaf || c.mass-b.Mass <= 1e-12*c.mass {
		c.reset()
		return true
	}
	rest := c.mass - b.Mass
	for d := range 3 {
		c.center[d] = (c.center[d]*c.mass - b.Pos[d]*b.Mass) / rest
	}
	c.mass = rest

	if depth >= MaxDepth {
		for i, e := range c.bucket {
			if e.Index == b.Index {
				c.bucket = append(c.bucket[:i], c.bucket[i+1:]...)
				break
			}
		}
		return false
	}

	i := c.octant(b.Pos)
	if ch := c.children[i]; ch != nil && ch.remove(b, depth+1) {
		c.children[i] = nil
	}
	for _, ch := range c.children {
		if ch != nil {
			return false
		}
	}
	if len(c.bucket) == 0 {
		c.reset()
		return true
	}
	return false
}

// Tree is a Barnes-Hut octree over weighted bodies.
//
// The zero value is an empty tree with no bounds; use Build.
// Tree is not safe for concurrent mutation. Concurrent walks on a tree that
// is not being mutated are safe.
type Tree struct {
	root *cell
	n    int
}

// Build constructs a tree whose root is a cube enclosing all bodies with
// 10% padding. Bodies with zero or negative mass are skipped.
func Build(bodies []Body) *Tree {
	t := &Tree{root: newCell(bounds(bodies))}
	for _, b := range bodies {
		t.Insert(b)
	}
	return t
}

func bounds(bodies []Body) (Vector, Vector) {
	if len(bodies) == 0 {
		return Vector{-0.5, -0.5, -0.5}, Vector{0.5, 0.5, 0.5}
	}
	lo, hi := bodies[0].Pos, bodies[0].Pos
	for _, b := range bodies[1:] {
		for d := range 3 {
			lo[d] = math.Min(lo[d], b.Pos[d])
			hi[d] = math.Max(hi[d], b.Pos[d])
		}
	}
	side := 0.0
	for d := range 3 {
		side = math.Max(side, hi[d]-lo[d])
	}
	if side == 0 {
		side = 1
	}
	side *= 1.2
	var min, max Vector
	for d := range 3 {
		c := (lo[d] + hi[d]) / 2
		min[d] = c - side/2
		max[d] = c + side/2
	}
	return min, max
}

// Insert adds b to the tree. Bodies with non-positive mass are ignored.
func (t *Tree) Insert(b Body) {
	if b.Mass <= 0 {
		return
	}
	t.root.insert(b, 0)
	t.n++
}

// Remove takes b out of the tree. b must carry the position and mass it was
// inserted with.
func (t *Tree) Remove(b Body) {
	if b.Mass <= 0 || t.n == 0 {
		return
	}
	t.root.remove(b, 0)
	t.n--
}

// Move relocates b to pos and returns the updated body.
func (t *Tree) Move(b Body, pos Vector) Body {
	t.Remove(b)
	b.Pos = pos
	t.Insert(b)
	return b
}

// Len returns the number of bodies in the tree.
func (t *Tree) Len() int { return t.n }

// Mass returns the total mass stored at the root.
func (t *Tree) Mass() float64 { return t.root.mass }

// Center returns the mass-weighted centroid of all bodies.
func (t *Tree) Center() Vector { return t.root.center }

// Width returns the side length of the root cell.
func (t *Tree) Width() float64 { return t.root.width() }

// Visit walks the tree from pos and calls fn for every body or pseudo body
// that stands in for the bodies other than ex. A cell is summarized when
// width/distance < theta; theta = 0 forces an exact walk.
func (t *Tree) Visit(pos Vector, theta float64, ex Exclusion, fn func(center Vector, mass float64)) {
	t.root.visit(pos, theta, ex, ex.Index >= 0, 0, fn)
}

func (c *cell) visit(pos Vector, theta float64, ex Exclusion, onPath bool, depth int, fn func(Vector, float64)) {
	if c.empty() {
		return
	}
	if c.leaf {
		if onPath && c.body.Index == ex.Index {
			return
		}
		fn(c.body.Pos, c.body.Mass)
		return
	}

	mass, center := c.mass, c.center
	if onPath {
		mass -= ex.Mass
		if mass <= 1e-12*c.mass {
			return
		}
		for d := range 3 {
			center[d] = (c.center[d]*c.mass - ex.Home[d]*ex.Mass) / mass
		}
	}
	if dist := pos.Dist(center); dist > 0 && c.width()/dist < theta {
		fn(center, mass)
		return
	}

	next := -1
	if onPath && depth < MaxDepth {
		next = c.octant(ex.Home)
	}
	for i, ch := range c.children {
		if ch != nil {
			ch.visit(pos, theta, ex, i == next, depth+1, fn)
		}
	}
	for _, b := range c.bucket {
		if onPath && b.Index == ex.Index {
			continue
		}
		fn(b.Pos, b.Mass)
	}
}

// Repulsion returns the summed inverse-power repulsion direction acting on
// a body at pos, excluding ex:
//
//	sum over cells of mass * (pos - center) * dist^(exponent-2)
//
// Distances are clamped to MinDistance and exactly coincident cells, which
// have no defined direction, contribute nothing.
func (t *Tree) Repulsion(pos Vector, theta, exponent float64, ex Exclusion) Vector {
	var force Vector
	t.Visit(pos, theta, ex, func(center Vector, mass float64) {
		diff := pos.Sub(center)
		dist := diff.Norm()
		if dist == 0 {
			return
		}
		dist = math.Max(dist, MinDistance)
		force = force.Add(diff.Scale(mass * math.Pow(dist, exponent-2)))
	})
	return force
}
