package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/prflow/internal/present"
	"github.com/lucasnoah/prflow/internal/workflow"
)

var (
	deriveFormat string
	deriveOut    string
)

var deriveCmd = &cobra.Command{
	Use:   "derive [file|-]",
	Short: "Derive workflow views from a saved history response",
	Long: `Read a fix history response (the API envelope or a bare JSON array) from a
file or stdin and print the derived view of every record followed by the
aggregate counts.`,
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
		data, err := renderReport(workflow.Build(records), deriveFormat)
		if err != nil {
			return err
		}
		return writeOutput(cmd, deriveOut, data)
	},
}

func renderReport(r workflow.Report, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal report: %w", err)
		}
		return append(data, '\n'), nil
	case "text", "":
		return []byte(present.Table(r)), nil
	}
	return nil, fmt.Errorf("unknown format %q (want text or json)", format)
}

func init() {
	deriveCmd.Flags().StringVar(&deriveFormat, "format", "text", "output format: text or json")
	deriveCmd.Flags().StringVar(&deriveOut, "out", "", "write output to this file instead of stdout")
}
