package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zakazai/ulin-grid/internal/storage"
)

func newSnapshotCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write a Parquet snapshot of every table in the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Storage.SnapshotDir
			}
			if dir == "" {
				return fmt.Errorf("no snapshot directory: set storage.snapshot_dir or pass --dir")
			}

			store, err := storage.NewStorage(cfg.StorageConfig())
			if err != nil {
				return err
			}
			defer store.Close()
			dumper, ok := store.(storage.Dumper)
			if !ok {
				return fmt.Errorf("%s storage does not support snapshots", cfg.StorageConfig().Type)
			}

			snap, err := storage.NewParquetSnapshot(dir, dumper)
			if err != nil {
				return err
			}
			if err := snap.SyncNow(context.Background()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot written to %s at %s\n", dir, snap.GetLastSyncTime().Format("2006-01-02 15:04:05"))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Output directory (default: storage.snapshot_dir)")
	return cmd
}
