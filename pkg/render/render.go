// Package render draws a diagram snapshot. It is a pure consumer of the
// graph model: it reads components and connections and never mutates
// them. Output formats are Graphviz DOT and SVG.
package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/nuno18084/Ampflux-sub000/pkg/schematic"
)

// Options configures snapshot rendering.
type Options struct {
	// Detailed includes component kind and properties in node labels.
	// When false, only the display name is shown.
	Detailed bool
}

// ToDOT converts a snapshot to Graphviz DOT. Components become boxes
// pinned at their world coordinates (graphviz points, y flipped so the
// diagram reads the same way up as the canvas); connections become edges
// without arrowheads, since wire direction is cosmetic.
func ToDOT(snap schematic.Snapshot, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph schematic {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	for _, c := range snap.Components {
		label := fmtLabel(c, opts.Detailed)
		// One graphviz point per world unit, pin with "!".
		fmt.Fprintf(&buf, "  %q [label=%q, pos=\"%.2f,%.2f!\"];\n",
			c.ID, label, c.Pos.X, -c.Pos.Y)
	}

	buf.WriteString("\n")
	for _, conn := range snap.Connections {
		fmt.Fprintf(&buf, "  %q -- %q;\n", conn.From, conn.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(c schematic.Component, detailed bool) string {
	name := c.Name
	if name == "" {
		name = c.Kind
	}
	if !detailed {
		return name
	}

	parts := []string{name, c.Kind}
	for _, k := range slices.Sorted(maps.Keys(c.Props)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, c.Props[k]))
	}
	return strings.Join(parts, "\n")
}

// SVG renders a DOT graph to SVG using Graphviz.
func SVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
