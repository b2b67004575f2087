// Package cluster assigns nodes of a weighted graph to communities by
// greedily maximizing modularity.
//
// The optimizer starts from singleton clusters and repeatedly moves single
// nodes to the neighbouring cluster with the largest modularity gain
// (local moving, as in the first phase of the Louvain method). With
// [Options.MultiLevel] the resulting clusters are collapsed into super
// nodes and local moving is repeated on the smaller graph until nothing
// changes.
//
// Results are deterministic: nodes are visited in the order they are given
// (graph snapshots are sorted by name), candidate clusters are scanned in
// ascending id order, a move happens only for a strictly larger gain, and
// the final ids are 0..k-1 in order of first appearance over the node list.
// Weight sums run in ascending neighbour order, so modularity values repeat
// bit for bit.
package cluster

import (
	"maps"
	"slices"

	"github.com/matzehuels/linlog/pkg/core/graph"
)

// DefaultMaxPasses bounds the number of local moving passes per level.
const DefaultMaxPasses = 100

// gainEpsilon guards against moves driven by floating-point noise.
const gainEpsilon = 1e-12

// Options configures [Optimize].
type Options struct {
	// MultiLevel enables repeated aggregation of clusters into super nodes.
	MultiLevel bool

	// IgnoreLoops drops self-loop edges before optimization, so they count
	// neither toward node degrees nor toward the total weight.
	IgnoreLoops bool

	// MaxPasses bounds local moving passes per level. 0 means
	// DefaultMaxPasses.
	MaxPasses int
}

// Assignment maps node name to cluster id.
type Assignment map[string]int

// Count returns the number of distinct clusters.
func (a Assignment) Count() int {
	seen := make(map[int]struct{}, len(a))
	for _, c := range a {
		seen[c] = struct{}{}
	}
	return len(seen)
}

// Members returns the sorted node names of every cluster.
func (a Assignment) Members() map[int][]string {
	out := make(map[int][]string)
	for name, c := range a {
		out[c] = append(out[c], name)
	}
	for c := range out {
		slices.Sort(out[c])
	}
	return out
}

// level is one graph of the multi-level hierarchy with dense node indices.
type level struct {
	adj    []map[int]float64
	order  [][]int // neighbours of each node in ascending index order
	degree []float64
	total  float64 // sum of all degrees, i.e. twice the undirected weight
}

func (l *level) size() int { return len(l.adj) }

func newLevel(n int) *level {
	l := &level{adj: make([]map[int]float64, n), degree: make([]float64, n)}
	for i := range l.adj {
		l.adj[i] = make(map[int]float64)
	}
	return l
}

func (l *level) add(s, t int, w float64) {
	l.adj[s][t] += w
	l.degree[s] += w
	l.total += w
}

// freeze fixes the neighbour order once all edges are added. Sums over
// neighbours follow it, so floating-point results repeat exactly.
func (l *level) freeze() *level {
	l.order = make([][]int, len(l.adj))
	for i, targets := range l.adj {
		l.order[i] = slices.Sorted(maps.Keys(targets))
	}
	return l
}

func buildLevel(nodes []graph.Node, edges []graph.Edge, ignoreLoops bool) *level {
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.Name] = i
	}
	l := newLevel(len(nodes))
	for _, e := range edges {
		s, ok := index[e.Source.Name]
		if !ok {
			continue
		}
		t, ok := index[e.Target.Name]
		if !ok {
			continue
		}
		if ignoreLoops && s == t {
			continue
		}
		l.add(s, t, e.Weight)
	}
	return l.freeze()
}

// localMove runs passes of single-node moves and reports whether any node
// changed cluster. comm is updated in place.
func (l *level) localMove(comm []int, maxPasses int) bool {
	if l.total == 0 {
		return false
	}
	tot := make([]float64, l.size())
	for i, c := range comm {
		tot[c] += l.degree[i]
	}

	moved := false
	links := make(map[int]float64)
	for range maxPasses {
		moves := 0
		for i := range comm {
			own := comm[i]
			k := l.degree[i]

			clear(links)
			for _, j := range l.order[i] {
				if j != i {
					links[comm[j]] += l.adj[i][j]
				}
			}

			tot[own] -= k
			best, bestGain := own, links[own]-tot[own]*k/l.total
			for _, c := range slices.Sorted(maps.Keys(links)) {
				if c == own {
					continue
				}
				if g := links[c] - tot[c]*k/l.total; g > bestGain+gainEpsilon {
					best, bestGain = c, g
				}
			}
			tot[best] += k

			if best != own {
				comm[i] = best
				moves++
			}
		}
		if moves == 0 {
			break
		}
		moved = true
	}
	return moved
}

// relabel renumbers comm to 0..k-1 in first-appearance order and returns k.
func relabel(comm []int) int {
	ids := make(map[int]int)
	for i, c := range comm {
		id, ok := ids[c]
		if !ok {
			id = len(ids)
			ids[c] = id
		}
		comm[i] = id
	}
	return len(ids)
}

// aggregate collapses each cluster of comm (already relabelled to 0..k-1)
// into a super node. Edges inside a cluster become self-loops.
func (l *level) aggregate(comm []int, k int) *level {
	next := newLevel(k)
	for i, neighbours := range l.order {
		for _, j := range neighbours {
			next.add(comm[i], comm[j], l.adj[i][j])
		}
	}
	return next.freeze()
}

// Optimize returns a cluster assignment covering every node exactly once.
// Edges are expected in symmetric form, with both directions listed, as
// produced by [graph.Symmetric.Edges].
func Optimize(nodes []graph.Node, edges []graph.Edge, opts Options) Assignment {
	maxPasses := opts.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	lvl := buildLevel(nodes, edges, opts.IgnoreLoops)
	membership := identity(len(nodes))

	for {
		comm := identity(lvl.size())
		moved := lvl.localMove(comm, maxPasses)
		k := relabel(comm)
		for i, c := range membership {
			membership[i] = comm[c]
		}
		if !opts.MultiLevel || !moved || k == lvl.size() {
			break
		}
		lvl = lvl.aggregate(comm, k)
	}

	relabel(membership)
	out := make(Assignment, len(nodes))
	for i, n := range nodes {
		out[n.Name] = membership[i]
	}
	return out
}

func identity(n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = i
	}
	return s
}

// Modularity returns the modularity of a over the symmetric edge list:
//
//	Q = sum over clusters c of in_c/2m - (tot_c/2m)^2
//
// where in_c is the weight of edges inside c and tot_c the summed degree of
// its nodes. Graphs without edge weight have modularity 0. Nodes missing
// from a are treated as singletons.
func Modularity(nodes []graph.Node, edges []graph.Edge, a Assignment, ignoreLoops bool) float64 {
	l := buildLevel(nodes, edges, ignoreLoops)
	if l.total == 0 {
		return 0
	}

	comm := make([]int, l.size())
	next := 0
	for _, c := range a {
		next = max(next, c+1)
	}
	for i, n := range nodes {
		if c, ok := a[n.Name]; ok {
			comm[i] = c
		} else {
			comm[i] = next
			next++
		}
	}

	in := make(map[int]float64)
	tot := make(map[int]float64)
	for i, neighbours := range l.order {
		tot[comm[i]] += l.degree[i]
		for _, j := range neighbours {
			if comm[i] == comm[j] {
				in[comm[i]] += l.adj[i][j]
			}
		}
	}

	var q float64
	for _, c := range slices.Sorted(maps.Keys(tot)) {
		frac := tot[c] / l.total
		q += in[c]/l.total - frac*frac
	}
	return q
}
