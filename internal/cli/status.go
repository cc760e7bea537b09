package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucasnoah/prflow/internal/present"
	"github.com/lucasnoah/prflow/internal/refresh"
	"github.com/lucasnoah/prflow/internal/snapshot"
	"github.com/lucasnoah/prflow/internal/source"
)

var (
	statusCached bool
	cacheFile    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Fetch fixes from the configured source and show their pipeline state",
	Long: `Fetch one batch from the configured source, derive every record and print
the pipeline table. The result is cached so --cached can show it again
without fetching.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := snapshotStore()
		if err != nil {
			return err
		}

		if statusCached {
			snap, err := store.Load()
			if errors.Is(err, snapshot.ErrNoSnapshot) {
				return fmt.Errorf("no cached snapshot at %s; run prflow status first", store.Path())
			}
			if err != nil {
				return err
			}
			printSnapshot(cmd, snap)
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		src, err := source.Open(ctx, cfg.Prflow.Source)
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer source.Close(src)

		r := refresh.New(src, refresh.Options{
			Timeout: cfg.Prflow.Source.TimeoutDuration(),
			Store:   store,
			Logger:  logger,
		})
		snap, err := r.Refresh(ctx)
		if err != nil {
			logger.Debug("status fetch failed", zap.Error(err))
			return fmt.Errorf("fetch from %s: %w", src.Name(), err)
		}
		printSnapshot(cmd, snap)
		return nil
	},
}

func printSnapshot(cmd *cobra.Command, snap snapshot.Snapshot) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, present.Table(snap.Report))
	fmt.Fprintf(out, "source %s, fetched %s\n", snap.Source, snap.FetchedAt.UTC().Format("2006-01-02 15:04 UTC"))
}

// snapshotStore opens the store at --cache, or ~/.prflow/last.json.
func snapshotStore() (*snapshot.Store, error) {
	if cacheFile != "" {
		return snapshot.NewStore(cacheFile), nil
	}
	path, err := snapshot.DefaultPath()
	if err != nil {
		return nil, err
	}
	return snapshot.NewStore(path), nil
}

func init() {
	statusCmd.Flags().BoolVar(&statusCached, "cached", false, "show the last cached snapshot without fetching")
	statusCmd.Flags().StringVar(&cacheFile, "cache", "", "snapshot cache file (default ~/.prflow/last.json)")
}
