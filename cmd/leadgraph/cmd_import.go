package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/leadgraph/lead"
	"github.com/smallnest/leadgraph/source"
)

var importFlags struct {
	from   source.Config
	status string
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Copy leads from another source into the configured one",
	Long: `Copy leads into the configured source, for example to load an Apollo CSV
export into Postgres or Redis before a run:

  leadgraph import -c leadgraph.yaml --from-kind csv --from-path apollo.csv`,
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.StringVar(&importFlags.from.Kind, "from-kind", source.KindCSV, "Kind of the source to read")
	f.StringVar(&importFlags.from.Path, "from-path", "", "File of a csv or sqlite source")
	f.StringVar(&importFlags.from.ConnString, "from-conn", "", "Connection string of a postgres source")
	f.StringVar(&importFlags.from.Addr, "from-addr", "", "Address of a redis source")
	f.StringVar(&importFlags.status, "status", lead.StatusNew, "Status of the leads to copy")
}

func runImport(cmd *cobra.Command, _ []string) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	from, err := source.Open(ctx, importFlags.from)
	if err != nil {
		return fmt.Errorf("open import source: %w", err)
	}
	defer from.Close()

	to, err := source.Open(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := to.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close source: %w", cerr)
		}
	}()

	in, ok := source.AsInserter(to)
	if !ok {
		return fmt.Errorf("%s sources cannot store imported leads", cfg.Source.Kind)
	}
	n, err := source.Import(ctx, from, in, lead.FetchOptions{Status: importFlags.status})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d lead(s)\n", n)
	return nil
}
