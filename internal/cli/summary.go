package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/prflow/internal/workflow"
)

var summaryFormat string

var summaryCmd = &cobra.Command{
	Use:   "summary [file|-]",
	Short: "Print aggregate counts for a saved history response",
	Long: `Print total, merged, in-progress and failed counts. Open fixes count as in
progress alongside fixes under review.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		records, err := readRecords(cmd, path)
		if err != nil {
			return err
		}
		sum := workflow.Build(records).Summary

		out := cmd.OutOrStdout()
		switch summaryFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		case "text", "":
			fmt.Fprintf(out, "Total PRs:   %d\n", sum.Total)
			fmt.Fprintf(out, "Merged:      %d\n", sum.Merged)
			fmt.Fprintf(out, "In Progress: %d\n", sum.InProgress)
			fmt.Fprintf(out, "Failed CI:   %d\n", sum.Failed)
			return nil
		}
		return fmt.Errorf("unknown format %q (want text or json)", summaryFormat)
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryFormat, "format", "text", "output format: text or json")
}
