package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/linlog/pkg/core/cluster"
	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/core/layout"
	"github.com/matzehuels/linlog/pkg/errors"
)

// Layout is the serialized result of a layout run.
type Layout struct {
	ID         string       `json:"id,omitempty"`
	Dimensions int          `json:"dimensions"`
	Iterations int          `json:"iterations"`
	Energy     float64      `json:"energy"`
	Modularity float64      `json:"modularity"`
	Clusters   int          `json:"clusters"`
	Nodes      []NodeLayout `json:"nodes"`
	Edges      []EdgeLayout `json:"edges,omitempty"`
}

// NodeLayout is one positioned node. Z is omitted for planar layouts.
type NodeLayout struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z,omitempty"`
	Cluster int     `json:"cluster"`
	Weight  float64 `json:"weight"`
}

// EdgeLayout is one undirected edge of the symmetrized graph, listed once
// with From <= To.
type EdgeLayout struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Weight float64 `json:"weight"`
}

// NewLayout assembles a Layout from the symmetric node and edge lists, the
// minimized positions and the cluster assignment. Nodes are listed in the
// order of nodes.
func NewLayout(nodes []graph.Node, edges []graph.Edge, p layout.Positions, a cluster.Assignment) Layout {
	l := Layout{
		Dimensions: int(layout.Planar),
		Clusters:   a.Count(),
		Nodes:      make([]NodeLayout, 0, len(nodes)),
	}
	for _, n := range nodes {
		v := p[n.Name]
		if v[2] != 0 {
			l.Dimensions = int(layout.Spatial)
		}
		l.Nodes = append(l.Nodes, NodeLayout{
			ID:      n.Name,
			X:       v[0],
			Y:       v[1],
			Z:       v[2],
			Cluster: a[n.Name],
			Weight:  n.Weight,
		})
	}
	for _, e := range edges {
		if e.Source.Name > e.Target.Name {
			continue
		}
		l.Edges = append(l.Edges, EdgeLayout{From: e.Source.Name, To: e.Target.Name, Weight: e.Weight})
	}
	return l
}

// Positions returns the node positions of l.
func (l Layout) Positions() layout.Positions {
	p := make(layout.Positions, len(l.Nodes))
	for _, n := range l.Nodes {
		p[n.ID] = layout.Vector{n.X, n.Y, n.Z}
	}
	return p
}

// Clusters returns the cluster assignment of l.
func (l Layout) Clusters() cluster.Assignment {
	a := make(cluster.Assignment, len(l.Nodes))
	for _, n := range l.Nodes {
		a[n.ID] = n.Cluster
	}
	return a
}

// WriteLayout encodes l as indented JSON.
func WriteLayout(l Layout, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteLayoutFile writes l to path.
func WriteLayoutFile(l Layout, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteLayout(l, f)
}

// ReadLayout decodes a layout. Duplicate node ids are rejected.
func ReadLayout(r io.Reader) (Layout, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Layout{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode layout")
	}
	seen := make(map[string]bool, len(l.Nodes))
	for _, n := range l.Nodes {
		if seen[n.ID] {
			return Layout{}, errors.New(errors.ErrCodeInvalidFormat, "duplicate node %q in layout", n.ID)
		}
		seen[n.ID] = true
	}
	return l, nil
}
