package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/smallnest/leadgraph/lead"
	"github.com/smallnest/leadgraph/source"
)

var leadsFlags struct {
	status string
	ids    []string
}

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List leads of the configured source",
	RunE:  runLeads,
}

func init() {
	f := leadsCmd.Flags()
	f.StringVar(&leadsFlags.status, "status", lead.StatusNew, "Status to list")
	f.StringSliceVar(&leadsFlags.ids, "ids", nil, "Comma separated lead ids (overrides --status)")
}

var headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)

func runLeads(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	src, err := source.Open(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	records, err := src.Fetch(ctx, lead.FetchOptions{IDs: leadsFlags.ids, Status: leadsFlags.status})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	const row = "%-10s %-24s %-30s %-20s %s\n"
	fmt.Fprint(out, headerStyle.Render(fmt.Sprintf("%-10s %-24s %-30s %-20s %s", "ID", "NAME", "EMAIL", "COMPANY", "STATUS")), "\n")
	for _, r := range records {
		fmt.Fprintf(out, row, r.ID, r.Name, r.Email, r.Company, r.Status)
	}
	fmt.Fprintf(out, "%d lead(s)\n", len(records))
	return nil
}
