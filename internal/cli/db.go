package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/prflow/internal/db"
)

var (
	dbPath     string
	resetForce bool
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the local SQLite copy of the fix history",
	Long: `The local database mirrors the backend's code_fix_applications table so
the sqlite source can be used offline or in tests.`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		cmd.Printf("Migrated %s\n", database.Path())
		return nil
	},
}

var dbResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the database (destructive!)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetForce {
			return fmt.Errorf("refusing to reset without --force")
		}
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Reset(); err != nil {
			return err
		}
		cmd.Printf("Reset %s\n", database.Path())
		return nil
	},
}

var dbImportCmd = &cobra.Command{
	Use:   "import [file|-]",
	Short: "Import a saved history response into the database",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		if len(args) == 1 {
			path = args[0]
		}
		records, err := readRecords(cmd, path)
		if err != nil {
			return err
		}
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		n, err := database.ImportRecords(records)
		if err != nil {
			return err
		}
		cmd.Printf("Imported %d fix(es) into %s\n", n, database.Path())
		return nil
	},
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count stored fixes by upstream status",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := openDB()
		if err != nil {
			return err
		}
		defer database.Close()

		counts, err := database.CountByStatus()
		if err != nil {
			return err
		}
		statuses := make([]string, 0, len(counts))
		for s := range counts {
			statuses = append(statuses, s)
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			label := s
			if label == "" {
				label = "(none)"
			}
			cmd.Printf("%-12s %d\n", label, counts[s])
		}
		return nil
	},
}

// openDB opens and migrates --db, or ~/.prflow/fixes.db.
func openDB() (*db.DB, error) {
	path := dbPath
	if path == "" {
		var err error
		if path, err = db.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("db path: %w", err)
		}
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}

func init() {
	dbCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default ~/.prflow/fixes.db)")
	dbResetCmd.Flags().BoolVar(&resetForce, "force", false, "confirm the reset")

	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbResetCmd)
	dbCmd.AddCommand(dbImportCmd)
	dbCmd.AddCommand(dbStatsCmd)
}
