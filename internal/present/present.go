// Package present maps derived views to display vocabulary: labels, colors,
// glyphs and formatted text shared by the terminal table and the web UI.
package present

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lucasnoah/prflow/internal/workflow"
)

// Badge is how an overall status is rendered.
type Badge struct {
	Label      string
	Background string
	Foreground string
}

var (
	badgeMerged = Badge{Label: "Merged", Background: "#dcfce7", Foreground: "#166534"}
	badgeReview = Badge{Label: "In Review", Background: "#fef3c7", Foreground: "#92400e"}
	badgeFailed = Badge{Label: "CI Failed", Background: "#fee2e2", Foreground: "#991b1b"}
	badgeOpen   = Badge{Label: "Open", Background: "#e0e7ff", Foreground: "#4338ca"}
)

// StatusBadge returns the badge for an overall status. Unknown values render
// as Open.
func StatusBadge(s workflow.OverallStatus) Badge {
	switch s {
	case workflow.StatusMerged:
		return badgeMerged
	case workflow.StatusReview:
		return badgeReview
	case workflow.StatusFailed:
		return badgeFailed
	default:
		return badgeOpen
	}
}

// Style returns a lipgloss style painting the badge colors.
func (b Badge) Style() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(b.Background)).
		Foreground(lipgloss.Color(b.Foreground)).
		Padding(0, 1)
}

// Render draws the badge label for a terminal.
func (b Badge) Render() string {
	return b.Style().Render(b.Label)
}

// Stage and CI indicator colors.
const (
	ColorCompleted = "#10b981"
	ColorRunning   = "#3b82f6"
	ColorFailed    = "#ef4444"
	ColorPending   = "#94a3b8"
)

// StageColor returns the indicator color for a stage status.
func StageColor(s workflow.StageStatus) string {
	switch s {
	case workflow.StageCompleted:
		return ColorCompleted
	case workflow.StageInProgress:
		return ColorRunning
	case workflow.StageFailed:
		return ColorFailed
	default:
		return ColorPending
	}
}

// StageGlyph returns a one-character marker for a stage status.
func StageGlyph(s workflow.StageStatus) string {
	switch s {
	case workflow.StageCompleted:
		return "✓"
	case workflow.StageInProgress:
		return "…"
	case workflow.StageFailed:
		return "✗"
	default:
		return "○"
	}
}

// CIColor returns the indicator color for a CI status.
func CIColor(s workflow.CIStatus) string {
	switch s {
	case workflow.CIPassed:
		return ColorCompleted
	case workflow.CIFailed:
		return ColorFailed
	case workflow.CIRunning:
		return ColorRunning
	default:
		return ColorPending
	}
}

// CIGlyph returns a marker for a CI status.
func CIGlyph(s workflow.CIStatus) string {
	switch s {
	case workflow.CIPassed:
		return "✓"
	case workflow.CIFailed:
		return "✗"
	default:
		return "…"
	}
}

// StageStrip renders the seven stage glyphs of a view in pipeline order,
// each colored by its status.
func StageStrip(v workflow.DerivedView) string {
	var out string
	for _, d := range workflow.Stages() {
		st := v.Stages[d.ID].Status
		out += lipgloss.NewStyle().Foreground(lipgloss.Color(StageColor(st))).Render(StageGlyph(st))
	}
	return out
}
