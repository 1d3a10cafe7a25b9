package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zakazai/ulin-grid/internal/api"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := types.GlobalLogger.WithField("component", "serve")

			store, err := storage.NewStorage(cfg.StorageConfig())
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if dumper, ok := store.(storage.Dumper); ok && cfg.Storage.SnapshotDir != "" {
				snap, err := storage.NewParquetSnapshot(cfg.Storage.SnapshotDir, dumper)
				if err != nil {
					return err
				}
				snap.SetSyncInterval(time.Duration(cfg.Storage.SnapshotInterval))
				snap.StartSyncWorker(ctx)
				defer snap.StopSyncWorker()
				log.Info("writing snapshots to %s", filepath.Clean(cfg.Storage.SnapshotDir))
			}

			srv := api.NewServer(store, nil)
			defer srv.Hub().Close()
			httpServer := &http.Server{Addr: cfg.Server.Addr, Handler: srv.Router()}

			errCh := make(chan error, 1)
			go func() {
				log.Info("listening on %s (%s store)", cfg.Server.Addr, cfg.StorageConfig().Type)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr)")
	return cmd
}
