package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
	detailStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("124")).Padding(0, 1)
	statusStyles  = map[pipeline.Status]lipgloss.Style{
		pipeline.StatusUnset:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		pipeline.StatusPending: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		pipeline.StatusSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		pipeline.StatusFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true),
	}
	outcomeStyles = map[pipeline.Outcome]lipgloss.Style{
		pipeline.OutcomeSucceeded: lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("34")).Padding(0, 1),
		pipeline.OutcomeFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Padding(0, 1),
		pipeline.OutcomeAborted:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Background(lipgloss.Color("238")).Padding(0, 1),
	}
)

// statusIcon returns the glyph for a stage status.
func statusIcon(s pipeline.Status) string {
	switch s {
	case pipeline.StatusSuccess:
		return "✓"
	case pipeline.StatusFailed:
		return "✗"
	case pipeline.StatusPending:
		return "●"
	default:
		return "○"
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
