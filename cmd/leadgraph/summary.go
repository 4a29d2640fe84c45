package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/smallnest/leadgraph/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderSummary(s pipeline.Summary, cfg pipeline.Config, runErr error) string {
	row := func(label, value string) string {
		return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
	}

	score := "n/a"
	if s.LastScore != "" {
		extract := cfg.ScoreExtractor
		if extract == nil {
			extract = pipeline.ParseScore
		}
		score = fmt.Sprintf("%.1f", extract(s.LastScore))
	}
	status := okStyle.Render("completed")
	if runErr != nil {
		status = errStyle.Render("aborted")
	}

	lines := []string{
		titleStyle.Render("leadgraph run"),
		row("Status", status),
		row("Processed", fmt.Sprintf("%d", len(s.Processed))),
		row("Remaining", fmt.Sprintf("%d", s.Remaining)),
		row("Last score", score),
	}
	if len(s.Processed) > 0 {
		lines = append(lines, row("Leads", strings.Join(s.Processed, ", ")))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
