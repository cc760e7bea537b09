package present

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lucasnoah/prflow/internal/workflow"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPending))
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7c3aed"))
)

var tableHeaders = []string{"PR", "STATUS", "STAGE", "PIPELINE", "CI", "TITLE", "APPLIED"}

// Table renders a report as a terminal table followed by the summary line.
func Table(r workflow.Report) string {
	rows := make([][]string, 0, len(r.Views))
	for _, v := range r.Views {
		stage, _ := workflow.LookupStage(v.CurrentStage)
		ci := lipgloss.NewStyle().Foreground(lipgloss.Color(CIColor(v.CIStatus))).
			Render(CIGlyph(v.CIStatus) + " " + string(v.CIStatus))
		rows = append(rows, []string{
			PRLabel(v.Record),
			StatusBadge(v.OverallStatus).Render(),
			stage.Label,
			StageStrip(v),
			ci,
			Title(v.Record),
			FormatTime(v.Record.AppliedAt),
		})
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("PR Workflow"))
	sb.WriteString("\n")

	if len(rows) == 0 {
		sb.WriteString(mutedStyle.Render("no fixes"))
		sb.WriteString("\n")
	} else {
		widths := make([]int, len(tableHeaders))
		for i, h := range tableHeaders {
			widths[i] = lipgloss.Width(h)
		}
		for _, row := range rows {
			for i, cell := range row {
				if w := lipgloss.Width(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
		for i := range widths {
			widths[i] += 2 // padding
		}

		for i, h := range tableHeaders {
			sb.WriteString(headerStyle.Width(widths[i]).Render(h))
		}
		sb.WriteString("\n")
		total := 0
		for _, w := range widths {
			total += w
		}
		sb.WriteString(mutedStyle.Render(strings.Repeat("─", total)))
		sb.WriteString("\n")
		for _, row := range rows {
			for i, cell := range row {
				sb.WriteString(cellStyle.Width(widths[i]).Render(cell))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(SummaryLine(r.Summary))
	sb.WriteString("\n")
	return sb.String()
}

// SummaryLine renders the aggregate counts on one line.
func SummaryLine(s workflow.AggregateSummary) string {
	return strings.Join([]string{
		"Total PRs " + strconv.Itoa(s.Total),
		lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCompleted)).Render("Merged " + strconv.Itoa(s.Merged)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b")).Render("In Progress " + strconv.Itoa(s.InProgress)),
		lipgloss.NewStyle().Foreground(lipgloss.Color(ColorFailed)).Render("Failed CI " + strconv.Itoa(s.Failed)),
	}, "  ")
}
