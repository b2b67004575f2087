// Package io reads and writes weighted graphs and computed layouts.
//
// # Graph JSON
//
// The graph format has two top-level arrays:
//
//	{
//	  "nodes": [{"id": "a"}, {"id": "b"}, {"id": "c"}],
//	  "edges": [
//	    {"from": "a", "to": "b", "weight": 2.5},
//	    {"from": "b", "to": "c"}
//	  ]
//	}
//
// Edge weight defaults to 1 when omitted. Edges are directed; the layout
// engine symmetrizes them. Listing a node is only needed for nodes without
// outgoing edges that should still take part in the layout.
//
// # CSV
//
// [ReadCSV] accepts an edge list with columns source, target and an optional
// weight. A header row is recognized when it names the columns (source/from/
// src, target/to/dst, weight/value/strength) and lets them appear in any
// order. Without a header the first three columns are used positionally.
//
// [ReadGraphFile] picks the format from the file extension.
//
// # Layout JSON
//
// A [Layout] is the serialized result of a layout run: one entry per node
// with coordinates, cluster id and node weight, plus modularity and energy.
// [ToDOT] renders a layout as Graphviz source with pinned positions, for
// use with neato -n.
package io
