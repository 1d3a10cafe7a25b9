// Package config reads and writes the gridctl TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/zakazai/ulin-grid/internal/edit"
	"github.com/zakazai/ulin-grid/internal/grid"
	"github.com/zakazai/ulin-grid/internal/pager"
	"github.com/zakazai/ulin-grid/internal/planner"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

// Duration is a time.Duration written as a string such as "500ms".
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

type Server struct {
	// Addr is where `gridctl serve` listens.
	Addr string `toml:"addr"`
	// URL, when set, makes the other commands talk to a remote server
	// instead of opening the store directly.
	URL    string `toml:"url"`
	UserID string `toml:"user_id"`
}

type Storage struct {
	Type             string   `toml:"type"`
	Path             string   `toml:"path"`
	Locale           string   `toml:"locale"`
	SnapshotDir      string   `toml:"snapshot_dir"`
	SnapshotInterval Duration `toml:"snapshot_interval"`
}

type Grid struct {
	PageSize        int      `toml:"page_size"`
	Lookahead       int      `toml:"lookahead"`
	Debounce        Duration `toml:"debounce"`
	SyncedWindow    Duration `toml:"synced_window"`
	LocalThreshold  int      `toml:"local_threshold"`
	KeepFailedInput bool     `toml:"keep_failed_input"`
}

type Log struct {
	Level string `toml:"level"`
}

// Config is the whole configuration file.
type Config struct {
	Server  Server  `toml:"server"`
	Storage Storage `toml:"storage"`
	Grid    Grid    `toml:"grid"`
	Log     Log     `toml:"log"`
}

// Default returns the configuration written by `gridctl init`.
func Default() Config {
	return Config{
		Server: Server{Addr: ":8080", UserID: "local"},
		Storage: Storage{
			Type:             string(storage.SQLStorageType),
			Path:             "data/grid.db",
			Locale:           "und",
			SnapshotInterval: Duration(5 * time.Minute),
		},
		Grid: Grid{
			PageSize:       types.DefaultPageSize,
			Lookahead:      pager.DefaultLookahead,
			Debounce:       Duration(grid.DefaultDebounce),
			SyncedWindow:   Duration(edit.DefaultWindow),
			LocalThreshold: planner.DefaultLocalThreshold,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads path over the defaults, so missing keys keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is Load, writing the defaults first when path is missing.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg = Default()
		return cfg, Save(path, cfg)
	}
	return cfg, err
}

// Save writes cfg to path.
func Save(path string, cfg Config) error {
	b, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// StorageConfig is the store factory input.
func (c Config) StorageConfig() storage.StorageConfig {
	return storage.StorageConfig{
		Type:     storage.StorageType(c.Storage.Type),
		FilePath: c.Storage.Path,
		Locale:   c.Storage.Locale,
	}
}

// GridOptions converts the grid section for the controller.
func (c Config) GridOptions() grid.Options {
	return grid.Options{
		PageSize:        c.Grid.PageSize,
		Lookahead:       c.Grid.Lookahead,
		Debounce:        time.Duration(c.Grid.Debounce),
		SyncedWindow:    time.Duration(c.Grid.SyncedWindow),
		LocalThreshold:  c.Grid.LocalThreshold,
		Locale:          c.Storage.Locale,
		KeepFailedInput: c.Grid.KeepFailedInput,
	}
}

// LogLevel is the configured level.
func (c Config) LogLevel() types.LogLevel {
	return types.ParseLogLevel(c.Log.Level)
}
