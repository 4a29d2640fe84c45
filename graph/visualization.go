package graph

import (
	"fmt"
	"strings"
)

// Exporter provides methods to export graphs in different formats
type Exporter struct {
	graph *Graph
}

// NewExporter creates a new graph exporter for the given graph
func NewExporter(graph *Graph) *Exporter {
	return &Exporter{graph: graph}
}

// Exporter returns an exporter for the compiled graph.
func (r *Runnable) Exporter() *Exporter {
	return NewExporter(r.graph)
}

// MermaidOptions defines configuration for Mermaid diagram generation
type MermaidOptions struct {
	// Direction of the flowchart (e.g., "TD", "LR")
	Direction string
}

// DrawMermaid generates a Mermaid diagram representation of the graph
func (ge *Exporter) DrawMermaid() string {
	return ge.DrawMermaidWithOptions(MermaidOptions{
		Direction: "TD",
	})
}

// DrawMermaidWithOptions generates a Mermaid diagram with custom options
func (ge *Exporter) DrawMermaidWithOptions(opts MermaidOptions) string {
	var sb strings.Builder
	g := ge.graph

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	fmt.Fprintf(&sb, "flowchart %s\n", direction)

	if g.entryPoint != "" {
		sb.WriteString("    START([\"START\"])\n")
		sb.WriteString("    style START fill:#90EE90\n")
	}

	for _, name := range g.order {
		if name == g.entryPoint {
			fmt.Fprintf(&sb, "    %s[[\"%s\"]]\n", name, name)
		} else {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
		}
	}
	if ge.referencesEnd() {
		sb.WriteString("    END([\"END\"])\n")
		sb.WriteString("    style END fill:#FFB6C1\n")
	}

	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    START --> %s\n", g.entryPoint)
	}
	for _, from := range g.order {
		if e, ok := g.edges[from]; ok {
			fmt.Fprintf(&sb, "    %s --> %s\n", from, e.To)
		}
		if fo, ok := g.fanOuts[from]; ok {
			for _, s := range fo.Siblings {
				fmt.Fprintf(&sb, "    %s ==> %s\n", from, s)
				fmt.Fprintf(&sb, "    %s ==> %s\n", s, fo.Join)
			}
		}
		if ce, ok := g.conditional[from]; ok {
			for _, label := range ce.Router.Labels {
				fmt.Fprintf(&sb, "    %s -. %s .-> %s\n", from, label, ce.Mapping[label])
			}
		}
	}

	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", g.entryPoint)
	}
	return sb.String()
}

// DrawDOT generates a DOT (Graphviz) representation of the graph
func (ge *Exporter) DrawDOT() string {
	var sb strings.Builder
	g := ge.graph

	sb.WriteString("digraph G {\n")
	sb.WriteString("    rankdir=TD;\n")
	sb.WriteString("    node [shape=box];\n")

	if g.entryPoint != "" {
		sb.WriteString("    START [label=\"START\", shape=ellipse, style=filled, fillcolor=lightgreen];\n")
		fmt.Fprintf(&sb, "    START -> %s;\n", g.entryPoint)
		fmt.Fprintf(&sb, "    %s [style=filled, fillcolor=lightblue];\n", g.entryPoint)
	}
	if ge.referencesEnd() {
		sb.WriteString("    END [label=\"END\", shape=ellipse, style=filled, fillcolor=lightpink];\n")
	}

	for _, from := range g.order {
		if e, ok := g.edges[from]; ok {
			fmt.Fprintf(&sb, "    %s -> %s;\n", from, e.To)
		}
		if fo, ok := g.fanOuts[from]; ok {
			for _, s := range fo.Siblings {
				fmt.Fprintf(&sb, "    %s -> %s [style=bold];\n", from, s)
				fmt.Fprintf(&sb, "    %s -> %s [style=bold];\n", s, fo.Join)
			}
		}
		if ce, ok := g.conditional[from]; ok {
			for _, label := range ce.Router.Labels {
				fmt.Fprintf(&sb, "    %s -> %s [style=dashed, label=%q];\n", from, ce.Mapping[label], label)
			}
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

func (ge *Exporter) referencesEnd() bool {
	g := ge.graph
	for _, e := range g.edges {
		if e.To == END {
			return true
		}
	}
	for _, fo := range g.fanOuts {
		if fo.Join == END {
			return true
		}
	}
	for _, ce := range g.conditional {
		for _, to := range ce.Mapping {
			if to == END {
				return true
			}
		}
	}
	return false
}
