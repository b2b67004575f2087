package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/linlog/pkg/core/graph"
	"github.com/matzehuels/linlog/pkg/errors"
)

// GraphDoc is the JSON form of a graph. It also describes a batch of
// additions to an existing graph.
type GraphDoc struct {
	Nodes []NodeDoc `json:"nodes"`
	Edges []EdgeDoc `json:"edges"`
}

// NodeDoc names a node by its id.
type NodeDoc struct {
	ID string `json:"id"`
}

// EdgeDoc is a weighted edge. A missing weight means [graph.DefaultWeight].
type EdgeDoc struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Weight *float64 `json:"weight,omitempty"`
}

// ReadGraph decodes a JSON graph from r.
//
// Node ids and edge weights are validated; the error carries
// [errors.ErrCodeInvalidGraph] and names the offending node or edge.
// Malformed JSON yields [errors.ErrCodeInvalidFormat]. ReadGraph does not
// close r.
func ReadGraph(r io.Reader) (*graph.Graph, error) {
	var doc GraphDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode graph")
	}
	return doc.Build()
}

// Build creates a new graph from doc.
func (doc GraphDoc) Build() (*graph.Graph, error) {
	g := graph.New()
	if err := doc.Apply(g); err != nil {
		return nil, err
	}
	return g, nil
}

// Len returns the number of nodes and edges in doc.
func (doc GraphDoc) Len() int { return len(doc.Nodes) + len(doc.Edges) }

// Validate checks every node id and edge without touching a graph, so a
// caller can reject a batch before applying any of it.
func (doc GraphDoc) Validate() error {
	for _, n := range doc.Nodes {
		if err := errors.ValidateNodeName(n.ID); err != nil {
			return err
		}
	}
	for _, e := range doc.Edges {
		if err := errors.ValidateNodeName(e.From); err != nil {
			return err
		}
		if err := errors.ValidateNodeName(e.To); err != nil {
			return err
		}
		if err := errors.ValidateWeight(e.From, e.To, e.weight()); err != nil {
			return err
		}
	}
	return nil
}

// Apply adds doc's nodes, then its edges, to g. It stops at the first
// invalid entry; earlier entries stay applied.
func (doc GraphDoc) Apply(g *graph.Graph) error {
	for _, n := range doc.Nodes {
		if err := AddNode(g, n.ID); err != nil {
			return err
		}
	}
	for _, e := range doc.Edges {
		if err := AddEdge(g, e.From, e.To, e.weight()); err != nil {
			return err
		}
	}
	return nil
}

func (e EdgeDoc) weight() float64 {
	if e.Weight == nil {
		return graph.DefaultWeight
	}
	return *e.Weight
}

// AddNode validates name and adds it to g.
func AddNode(g *graph.Graph, name string) error {
	if err := errors.ValidateNodeName(name); err != nil {
		return err
	}
	if err := g.AddNode(name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidGraph, err, "node %q", name)
	}
	return nil
}

// AddEdge validates both endpoint names and the weight and adds the edge.
func AddEdge(g *graph.Graph, source, target string, weight float64) error {
	if err := errors.ValidateNodeName(source); err != nil {
		return err
	}
	if err := errors.ValidateNodeName(target); err != nil {
		return err
	}
	if err := errors.ValidateWeight(source, target, weight); err != nil {
		return err
	}
	if err := g.AddEdge(source, target, weight); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidGraph, err, "edge %s->%s", source, target)
	}
	return nil
}

// WriteGraph encodes g as JSON. Nodes are the adjacency keys in sorted
// order and edges are sorted by source and target, so equal graphs encode
// to equal bytes.
func WriteGraph(g *graph.Graph, w io.Writer) error {
	adj := g.Adjacency()
	doc := GraphDoc{Nodes: []NodeDoc{}, Edges: []EdgeDoc{}}
	for _, name := range adj.Names() {
		if _, ok := adj[name]; ok {
			doc.Nodes = append(doc.Nodes, NodeDoc{ID: name})
		}
	}
	for _, e := range adj.Edges() {
		weight := e.Weight
		doc.Edges = append(doc.Edges, EdgeDoc{From: e.Source.Name, To: e.Target.Name, Weight: &weight})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// MarshalGraph returns the JSON encoding used by [WriteGraph].
func MarshalGraph(g *graph.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadGraphFile reads a graph from path. Files ending in .csv or .tsv are
// read as edge lists, everything else as JSON.
func ReadGraphFile(path string) (*graph.Graph, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSV(f, ',')
	case ".tsv":
		return ReadCSV(f, '\t')
	default:
		return ReadGraph(f)
	}
}

// WriteGraphFile writes g to path as JSON.
func WriteGraphFile(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}
