package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/leadgraph/graph"
	"github.com/smallnest/leadgraph/pipeline"
)

var graphFlags struct {
	format string
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the workflow diagram",
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphFlags.format, "format", "mermaid", "Diagram format: mermaid or dot")
}

func runGraph(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	g := pipeline.NewGraph(pipeline.Deps{}, cfg.Pipeline)
	if err := g.Validate(); err != nil {
		return err
	}

	exp := graph.NewExporter(g)
	out := cmd.OutOrStdout()
	switch graphFlags.format {
	case "mermaid":
		fmt.Fprintln(out, exp.DrawMermaid())
	case "dot":
		fmt.Fprintln(out, exp.DrawDOT())
	default:
		return fmt.Errorf("unknown format %q (want mermaid or dot)", graphFlags.format)
	}
	return nil
}
