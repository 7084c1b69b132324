// Package render draws topologies as Graphviz diagrams.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"topozoo/internal/topology"
)

// Format is an image format Render can produce.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// Options configures DOT generation.
type Options struct {
	// SwitchesOnly drops hosts and their access links.
	SwitchesOnly bool
	// Labels uses node labels (city codes) instead of names when present.
	Labels bool
}

// ToDOT converts t to an undirected Graphviz graph.
// OpenFlow13 switches are filled blue; links with a bandwidth are labelled in Mbit/s.
func ToDOT(t *topology.Topology, opts Options) string {
	if opts.SwitchesOnly {
		t = t.SwitchSubgraph()
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=12];\n")
	buf.WriteString("\n")

	for _, n := range t.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, strings.Join(nodeAttrs(n, opts.Labels), ", "))
	}

	buf.WriteString("\n")
	for _, l := range t.Links() {
		if l.HasBandwidth() {
			fmt.Fprintf(&buf, "  %q -- %q [label=%q];\n", l.NodeA, l.NodeB, fmtBandwidth(l.Bandwidth))
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q;\n", l.NodeA, l.NodeB)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n topology.Node, labels bool) []string {
	label := n.Name
	if labels {
		label = n.DisplayName()
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}

	switch n.Type {
	case topology.NodeSwitch:
		attrs = append(attrs, "shape=box", "style=\"rounded,filled\"")
		if n.Protocols != "" {
			attrs = append(attrs, "fillcolor=lightblue", fmt.Sprintf("tooltip=%q", n.Protocols))
		} else {
			attrs = append(attrs, "fillcolor=white")
		}
	case topology.NodeHost:
		attrs = append(attrs, "shape=ellipse", "fontsize=9")
	}
	return attrs
}

func fmtBandwidth(bw float64) string {
	return strconv.FormatFloat(bw, 'f', -1, 64) + "M"
}

// Render lays out a DOT graph and writes it to w in the given format.
func Render(ctx context.Context, dot string, format Format, w io.Writer) error {
	var gf graphviz.Format
	switch format {
	case FormatSVG:
		gf = graphviz.SVG
	case FormatPNG:
		gf = graphviz.PNG
	default:
		return fmt.Errorf("unsupported format: %q", format)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	if err := gv.Render(ctx, g, gf, w); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}
