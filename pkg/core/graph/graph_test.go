package graph

import (
	"errors"
	"math"
	"testing"
)

func TestAddNode(t *testing.T) {
	g := New()
	var changes []Change
	g.Subscribe(ListenerFunc(func(_ *Graph, c Change) { changes = append(changes, c) }))

	if err := g.AddNode("a"); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	if err := g.AddNode("a"); err != nil {
		t.Fatalf("AddNode (again): %v", err)
	}
	if g.NodeCount() != 1 {
		t.Errorf("NodeCount() = %d, want 1", g.NodeCount())
	}
	if len(changes) != 1 || changes[0].Kind != NodeAdded || changes[0].Source != "a" {
		t.Errorf("changes = %+v, want one NodeAdded for a", changes)
	}

	if err := g.AddNode(""); !errors.Is(err, ErrInvalidNodeName) {
		t.Errorf("AddNode(\"\") error = %v, want ErrInvalidNodeName", err)
	}
}

func TestAddEdge(t *testing.T) {
	g := New()
	var kinds []ChangeKind
	g.Subscribe(ListenerFunc(func(_ *Graph, c Change) { kinds = append(kinds, c.Kind) }))

	if err := g.AddEdge("a", "b", 2); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if !g.HasNode("a") {
		t.Error("source was not auto-added")
	}
	if g.HasNode("b") {
		t.Error("target should not be auto-added")
	}
	if w, ok := g.Weight("a", "b"); !ok || w != 2 {
		t.Errorf("Weight(a,b) = %v,%v, want 2,true", w, ok)
	}

	if err := g.AddEdge("a", "b", 7); err != nil {
		t.Fatalf("AddEdge overwrite: %v", err)
	}
	if w, _ := g.Weight("a", "b"); w != 7 {
		t.Errorf("Weight after overwrite = %v, want 7", w)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, want 1", g.EdgeCount())
	}

	want := []ChangeKind{NodeAdded, EdgeAdded, EdgeAdded}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("kinds[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestAddEdgeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		weight float64
		want   error
	}{
		{"empty source", "", "b", 1, ErrInvalidNodeName},
		{"empty target", "a", "", 1, ErrInvalidNodeName},
		{"negative", "a", "b", -1, ErrInvalidWeight},
		{"NaN", "a", "b", math.NaN(), ErrInvalidWeight},
		{"Inf", "a", "b", math.Inf(1), ErrInvalidWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			if err := g.AddEdge(tt.source, tt.target, tt.weight); !errors.Is(err, tt.want) {
				t.Errorf("AddEdge error = %v, want %v", err, tt.want)
			}
			if g.NodeCount() != 0 {
				t.Errorf("rejected edge mutated the graph")
			}
		})
	}
}

func TestLinkUsesDefaultWeight(t *testing.T) {
	g := New()
	if err := g.Link("x", "y"); err != nil {
		t.Fatal(err)
	}
	if w, _ := g.Weight("x", "y"); w != DefaultWeight {
		t.Errorf("Weight = %v, want %v", w, DefaultWeight)
	}
}

func TestListenersInRegistrationOrder(t *testing.T) {
	g := New()
	var order []int
	for i := range 3 {
		g.Subscribe(ListenerFunc(func(*Graph, Change) { order = append(order, i) }))
	}
	_ = g.AddNode("a")

	if len(order) != 3 || order[0] != 0 || order[1] != 1 || order[2] != 2 {
		t.Errorf("order = %v, want [0 1 2]", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	g := New()
	calls := 0
	cancel := g.Subscribe(ListenerFunc(func(*Graph, Change) { calls++ }))
	_ = g.AddNode("a")
	cancel()
	cancel()
	_ = g.AddNode("b")

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestAdjacencyIsACopy(t *testing.T) {
	g := New()
	_ = g.AddEdge("a", "b", 1)
	adj := g.Adjacency()
	adj["a"]["b"] = 99
	adj["z"] = map[string]float64{}

	if w, _ := g.Weight("a", "b"); w != 1 {
		t.Errorf("graph mutated through snapshot: weight = %v", w)
	}
	if g.HasNode("z") {
		t.Error("graph mutated through snapshot: z present")
	}
}
