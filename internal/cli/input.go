package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/prflow/internal/snapshot"
	"github.com/lucasnoah/prflow/internal/source"
	"github.com/lucasnoah/prflow/internal/workflow"
)

// readRecords decodes a history response from path, or stdin when path is
// empty or "-".
func readRecords(cmd *cobra.Command, path string) ([]workflow.RawFixRecord, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
		path = "stdin"
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	env, err := source.DecodeEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return env.Records()
}

// writeOutput writes data to out atomically, or to the command's stdout when
// out is empty.
func writeOutput(cmd *cobra.Command, out string, data []byte) error {
	if out == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := snapshot.WriteFile(out, data); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
	return nil
}
