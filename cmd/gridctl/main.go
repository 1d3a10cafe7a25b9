// Command gridctl serves, seeds, browses and exports data grids.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zakazai/ulin-grid/internal/api"
	"github.com/zakazai/ulin-grid/internal/config"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

var (
	configPath string
	userID     string
	remoteURL  string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gridctl",
		Short:         "Row/column data grids with filtering, sorting and search",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gridctl.toml", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "Caller id (default: server.user_id)")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "Use a gridctl server at this URL instead of the local store")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(newInitCmd(), newServeCmd(), newShellCmd(), newSeedCmd(), newExportCmd(), newSnapshotCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration, falling back to defaults when the
// file does not exist, and sets up logging.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if os.IsNotExist(err) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		return cfg, err
	}
	if remoteURL != "" {
		cfg.Server.URL = remoteURL
	}
	if userID != "" {
		cfg.Server.UserID = userID
	}

	level := cfg.LogLevel()
	if verbose {
		level = types.LogLevelDebug
	}
	types.GlobalLogger = types.InitLogger(level, os.Stderr)
	return cfg, nil
}

// openStore returns a client for the configured server, or the local store.
func openStore(cfg config.Config) (storage.Storage, error) {
	if cfg.Server.URL != "" {
		return api.NewClient(cfg.Server.URL, nil), nil
	}
	return storage.NewStorage(cfg.StorageConfig())
}

func callerContext(ctx context.Context, cfg config.Config) context.Context {
	return types.WithCaller(ctx, cfg.Server.UserID)
}
