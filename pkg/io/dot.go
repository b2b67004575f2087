package io

import (
	"fmt"
	"strconv"
	"strings"
)

// clusterColors is the fill palette, cycled by cluster id.
var clusterColors = []string{
	"#4285F4", "#EA4335", "#FBBC05", "#34A853", "#673AB7",
	"#3F51B5", "#00BCD4", "#009688", "#FF5722",
}

// DOTOptions controls [ToDOT].
type DOTOptions struct {
	// Scale multiplies coordinates; Graphviz positions are in points.
	Scale float64
	// Labels draws node names instead of small unlabeled points.
	Labels bool
}

// ToDOT renders l as an undirected Graphviz graph with pinned node
// positions, coloured by cluster.
func ToDOT(l Layout, opts DOTOptions) string {
	if opts.Scale == 0 {
		opts.Scale = 100
	}

	var b strings.Builder
	b.WriteString("graph linlog {\n")
	b.WriteString("  graph [outputorder=edgesfirst];\n")
	if opts.Labels {
		b.WriteString("  node [shape=ellipse, style=filled, fontsize=10];\n")
	} else {
		b.WriteString("  node [shape=point, width=0.08];\n")
	}
	b.WriteString("  edge [color=\"#00000040\"];\n")

	for _, n := range l.Nodes {
		color := clusterColors[((n.Cluster%len(clusterColors))+len(clusterColors))%len(clusterColors)]
		fmt.Fprintf(&b, "  %s [pos=\"%s,%s!\", fillcolor=%q, color=%q];\n",
			strconv.Quote(n.ID), formatCoord(n.X*opts.Scale), formatCoord(n.Y*opts.Scale), color, color)
	}
	for _, e := range l.Edges {
		fmt.Fprintf(&b, "  %s -- %s [penwidth=%s];\n",
			strconv.Quote(e.From), strconv.Quote(e.To), formatCoord(penWidth(e.Weight)))
	}
	b.WriteString("}\n")
	return b.String()
}

func penWidth(w float64) float64 {
	switch {
	case w <= 0:
		return 0.5
	case w >= 7:
		return 4
	default:
		return 0.5 + w/2
	}
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
