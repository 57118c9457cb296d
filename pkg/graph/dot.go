package graph

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-graphviz"
)

// DOTOptions configures conversion-graph DOT output.
type DOTOptions struct {
	// Weights includes the declared edge weight in edge labels.
	// Weights are informational only - path ranking ignores them.
	Weights bool
}

// ToDOT converts the graph to Graphviz DOT format.
// The resulting DOT string can be rendered with [RenderSVG].
func ToDOT(g *ConversionGraph, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph conversions {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q;\n", string(n))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if opts.Weights {
			label := strconv.FormatFloat(e.Weight(), 'g', -1, 64)
			fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", string(e.Source()), string(e.Target()), label)
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", string(e.Source()), string(e.Target()))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	parsed, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, parsed, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render SVG: %w", err)
	}
	return buf.Bytes(), nil
}
