package graph

import (
	"errors"
	"math"
)

// DefaultWeight is the weight used by [Graph.Link].
const DefaultWeight = 1.0

var (
	// ErrInvalidNodeName is returned by [Graph.AddNode] and [Graph.AddEdge]
	// when a node name is empty.
	ErrInvalidNodeName = errors.New("node name must not be empty")

	// ErrInvalidWeight is returned by [Graph.AddEdge] when the weight is
	// negative, NaN or infinite. Edge weights feed directly into the energy
	// model and must be finite and non-negative.
	ErrInvalidWeight = errors.New("edge weight must be finite and non-negative")
)

// ChangeKind identifies the mutation announced to listeners.
type ChangeKind int

const (
	// NodeAdded is announced when a previously unknown node gains an
	// adjacency entry.
	NodeAdded ChangeKind = iota
	// EdgeAdded is announced whenever a directed edge weight is set,
	// including overwrites of an existing pair.
	EdgeAdded
)

// String returns the wire name of the change kind.
func (k ChangeKind) String() string {
	switch k {
	case NodeAdded:
		return "node_added"
	case EdgeAdded:
		return "edge_added"
	default:
		return "unknown"
	}
}

// Change describes a single graph mutation. For NodeAdded, Target is empty.
type Change struct {
	Kind   ChangeKind
	Source string
	Target string
}

// Listener receives change notifications from a [Graph].
type Listener interface {
	GraphChanged(g *Graph, c Change)
}

// ListenerFunc adapts a plain function to the [Listener] interface.
type ListenerFunc func(g *Graph, c Change)

// GraphChanged calls f(g, c).
func (f ListenerFunc) GraphChanged(g *Graph, c Change) { f(g, c) }

type subscription struct {
	id int
	l  Listener
}

// Graph is a mutable weighted directed graph keyed by node name.
//
// The zero value is not usable - use New to create a Graph.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	adj       Adjacency
	listeners []subscription
	nextID    int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{adj: make(Adjacency)}
}

// AddNode inserts name with an empty adjacency. It is a no-op, and
// announces nothing, if the node already has an entry.
func (g *Graph) AddNode(name string) error {
	if name == "" {
		return ErrInvalidNodeName
	}
	g.addNode(name)
	return nil
}

func (g *Graph) addNode(name string) {
	if _, ok := g.adj[name]; ok {
		return
	}
	g.adj[name] = make(map[string]float64)
	g.notify(Change{Kind: NodeAdded, Source: name})
}

// AddEdge sets the weight of the directed edge source -> target, replacing
// any previous weight. The source is added first if it has no entry; the
// target is not added. An EdgeAdded change is always announced.
func (g *Graph) AddEdge(source, target string, weight float64) error {
	if source == "" || target == "" {
		return ErrInvalidNodeName
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return ErrInvalidWeight
	}
	g.addNode(source)
	g.adj[source][target] = weight
	g.notify(Change{Kind: EdgeAdded, Source: source, Target: target})
	return nil
}

// Link adds source -> target with [DefaultWeight].
func (g *Graph) Link(source, target string) error {
	return g.AddEdge(source, target, DefaultWeight)
}

// Weight returns the directed weight of source -> target.
func (g *Graph) Weight(source, target string) (float64, bool) {
	w, ok := g.adj[source][target]
	return w, ok
}

// HasNode reports whether name has an adjacency entry.
// Names that only appear as edge targets are not counted.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.adj[name]
	return ok
}

// NodeCount returns the number of adjacency entries.
func (g *Graph) NodeCount() int { return len(g.adj) }

// EdgeCount returns the number of directed edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, targets := range g.adj {
		n += len(targets)
	}
	return n
}

// Adjacency returns a deep copy of the adjacency map.
func (g *Graph) Adjacency() Adjacency {
	return g.adj.Clone()
}

// Symmetric returns the symmetrized view of the current graph.
func (g *Graph) Symmetric() Symmetric {
	return Symmetrize(g.adj)
}

// Subscribe registers l for change notifications and returns a function
// that removes it again. Listeners are called in registration order.
func (g *Graph) Subscribe(l Listener) (unsubscribe func()) {
	id := g.nextID
	g.nextID++
	g.listeners = append(g.listeners, subscription{id: id, l: l})
	return func() {
		for i, s := range g.listeners {
			if s.id == id {
				g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

func (g *Graph) notify(c Change) {
	// Iterate over a snapshot so listeners may unsubscribe while being called.
	subs := append([]subscription(nil), g.listeners...)
	for _, s := range subs {
		s.l.GraphChanged(g, c)
	}
}
