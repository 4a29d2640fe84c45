// leadgraph researches, scores and contacts sales leads.
//
// Usage:
//
//	leadgraph run [--config leadgraph.yaml] [--ids a,b] [--step-bound n] [--send] [--dry-run]
//	leadgraph graph [--format mermaid|dot]
//	leadgraph leads [--status NEW] [--ids a,b]
//	leadgraph import --from-kind csv --from-path leads.csv
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
