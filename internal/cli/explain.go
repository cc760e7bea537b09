package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/prflow/internal/present"
	"github.com/lucasnoah/prflow/internal/workflow"
)

var explainCmd = &cobra.Command{
	Use:   "explain [file|-] <id>",
	Short: "Show how one record was classified",
	Long: `Show the resolved fields of one record, which classification rule matched
and the status of every stage. The record is looked up by its resolved id
(pr_number, then id, then position in the batch). When several records in
the batch resolve to the same id, each is addressed as <id>@<position>.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, id := "", args[0]
		if len(args) == 2 {
			path, id = args[0], args[1]
		}
		records, err := readRecords(cmd, path)
		if err != nil {
			return err
		}
		report := workflow.Build(records)
		v, ok := report.Find(id)
		if !ok {
			if keys := report.KeysFor(id); len(keys) > 1 {
				return fmt.Errorf("id %q matches %d records, use one of: %s", id, len(keys), strings.Join(keys, ", "))
			}
			return fmt.Errorf("no record with id %q", id)
		}
		fmt.Fprint(cmd.OutOrStdout(), explain(v))
		return nil
	},
}

func explain(v workflow.DerivedView) string {
	n := v.Record
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %s\n", present.PRLabel(n), present.Title(n))
	fmt.Fprintf(&sb, "  status:      %s\n", orNA(n.Status))
	fmt.Fprintf(&sb, "  pr_number:   %s\n", orNA(n.PRNumber))
	fmt.Fprintf(&sb, "  pr_url:      %s\n", orNA(n.PRURL))
	fmt.Fprintf(&sb, "  branch:      %s\n", n.BranchName)
	fmt.Fprintf(&sb, "  failure:     %s\n", present.LinkedFailure(n))
	fmt.Fprintf(&sb, "  fix type:    %s\n", n.FixTypeLabel)
	fmt.Fprintf(&sb, "  rollback_at: %s\n", present.FormatTime(n.RollbackAt))

	sb.WriteString("\nRules:\n")
	for _, r := range workflow.Rules() {
		mark := "  "
		if r.Name == v.Rule {
			mark = "=>"
		}
		fmt.Fprintf(&sb, "  %s %-10s -> %s / %s\n", mark, r.Name, r.Status, r.Stage)
		if r.Name == v.Rule {
			break
		}
	}

	fmt.Fprintf(&sb, "\nOverall: %s (%s), CI %s\n", v.OverallStatus, present.StatusBadge(v.OverallStatus).Label, v.CIStatus)
	sb.WriteString("Stages:\n")
	for _, d := range workflow.Stages() {
		st := v.Stages[d.ID]
		cur := " "
		if d.ID == v.CurrentStage {
			cur = "*"
		}
		fmt.Fprintf(&sb, "  %s %s %-18s %-11s", cur, present.StageGlyph(st.Status), d.Label, st.Status)
		if st.Timestamp != "" {
			sb.WriteString(" " + present.FormatTime(st.Timestamp))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return present.NotAvailable
	}
	return s
}
