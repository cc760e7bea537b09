package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/prflow/internal/workflow"
)

var stagesCmd = &cobra.Command{
	Use:   "stages",
	Short: "List the pipeline stages in order",
	Run: func(cmd *cobra.Command, args []string) {
		for _, d := range workflow.Stages() {
			fmt.Fprintf(cmd.OutOrStdout(), "%d  %-11s %-18s %s\n", d.Order, d.ID, d.Label, d.Description)
		}
	},
}
