package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lucasnoah/prflow/internal/refresh"
	"github.com/lucasnoah/prflow/internal/source"
	"github.com/lucasnoah/prflow/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and the background refresher",
	Long: `Start a read-only browser UI showing every fix's pipeline stages, with a
JSON API under /api. The configured source is polled every refresh.interval;
POST /refresh polls immediately. File sources are also reloaded when the file
changes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if servePort != 0 {
			cfg.Prflow.Server.Port = servePort
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := snapshotStore()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		src, err := source.Open(ctx, cfg.Prflow.Source)
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer source.Close(src)

		refresher := refresh.New(src, refresh.Options{
			Interval: cfg.Prflow.Refresh.IntervalDuration(),
			Timeout:  cfg.Prflow.Source.TimeoutDuration(),
			Store:    store,
			Logger:   logger.Named("refresh"),
		})
		server := web.NewServer(refresher, cfg.Prflow.Server.Port, logger.Named("web"))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return refresher.Run(gctx) })
		g.Go(func() error { return server.ListenAndServe(gctx) })

		err = g.Wait()
		logger.Info("shut down", zap.Error(err))
		return err
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides server.port)")
	serveCmd.Flags().StringVar(&cacheFile, "cache", "", "snapshot cache file (default ~/.prflow/last.json)")
}
