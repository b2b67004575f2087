package graph

import (
	"cmp"
	"maps"
	"slices"
)

// Adjacency maps source name to target name to directed edge weight.
type Adjacency map[string]map[string]float64

// Node is an immutable snapshot of a vertex. Weight is the sum of the
// outgoing edge weights in the adjacency it was taken from.
type Node struct {
	Name   string
	Weight float64
}

// Edge is an immutable snapshot of a directed weighted edge.
type Edge struct {
	Source Node
	Target Node
	Weight float64
}

// Clone returns a deep copy of a.
func (a Adjacency) Clone() Adjacency {
	out := make(Adjacency, len(a))
	for s, targets := range a {
		out[s] = maps.Clone(targets)
		if out[s] == nil {
			out[s] = make(map[string]float64)
		}
	}
	return out
}

// Symmetric is an undirected view produced by [Symmetrize]. For every pair
// the weight stored in both directions is the same.
type Symmetric struct {
	Adjacency
}

// Symmetrize returns the undirected view of a: for every directed edge
// (s, t, w) both result[s][t] and result[t][s] hold w plus the reverse
// weight, or w alone when no reverse edge exists. A self-loop (s, s, w)
// becomes 2w. Every node that appears as a target gains an entry.
func Symmetrize(a Adjacency) Symmetric {
	out := make(Adjacency, len(a))
	for s, targets := range a {
		if _, ok := out[s]; !ok {
			out[s] = make(map[string]float64)
		}
		for t, w := range targets {
			rw := a[t][s]
			if _, ok := out[t]; !ok {
				out[t] = make(map[string]float64)
			}
			out[s][t] = w + rw
			out[t][s] = w + rw
		}
	}
	return Symmetric{Adjacency: out}
}

// Symmetrize returns s unchanged: symmetrizing an undirected view is
// the identity.
func (s Symmetric) Symmetrize() Symmetric { return s }

// Names returns every node name in a, keys and targets alike, sorted.
func (a Adjacency) Names() []string {
	set := make(map[string]struct{}, len(a))
	for s, targets := range a {
		set[s] = struct{}{}
		for t := range targets {
			set[t] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Nodes materializes a node list sorted by name. Names that only appear as
// targets get weight 0.
func (a Adjacency) Nodes() []Node {
	names := a.Names()
	nodes := make([]Node, len(names))
	for i, name := range names {
		var w float64
		for _, x := range a[name] {
			w += x
		}
		nodes[i] = Node{Name: name, Weight: w}
	}
	return nodes
}

// Edges materializes the directed edge list sorted by (source, target).
// Endpoint nodes carry the same weights as [Adjacency.Nodes].
func (a Adjacency) Edges() []Edge {
	byName := make(map[string]Node)
	for _, n := range a.Nodes() {
		byName[n.Name] = n
	}
	var edges []Edge
	for s, targets := range a {
		for t, w := range targets {
			edges = append(edges, Edge{Source: byName[s], Target: byName[t], Weight: w})
		}
	}
	slices.SortFunc(edges, func(x, y Edge) int {
		if c := cmp.Compare(x.Source.Name, y.Source.Name); c != 0 {
			return c
		}
		return cmp.Compare(x.Target.Name, y.Target.Name)
	})
	return edges
}

// TotalWeight returns the sum of all directed edge weights.
func (a Adjacency) TotalWeight() float64 {
	var sum float64
	for _, targets := range a {
		for _, w := range targets {
			sum += w
		}
	}
	return sum
}
