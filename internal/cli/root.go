package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucasnoah/prflow/internal/config"
	"github.com/lucasnoah/prflow/internal/logging"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "prflow",
	Short: "prflow — derive PR workflow state for AI auto-fixes",
	Long: `prflow turns the fix history reported by the auto-fix backend into a
seven-stage pull request pipeline view: approved, branch, commit, PR created,
CI running, review, merged.

Records are read from the history API, a Postgres or SQLite copy of the
code_fix_applications table, or a saved JSON response. The last derived batch
is cached in ~/.prflow/last.json.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads --config, or the default search paths when unset.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault()
}

// newLogger builds the process logger. --log-level overrides the file.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level := cfg.Prflow.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logging.New(level, cfg.Prflow.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return logger, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to prflow.yaml (default: ./prflow.yaml, then ~/.prflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(stagesCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
}
