package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zakazai/ulin-grid/internal/config"
	"github.com/zakazai/ulin-grid/internal/storage"
	"github.com/zakazai/ulin-grid/internal/types"
)

func TestLoadOrDefaultWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridctl.toml")

	cfg, err := config.LoadOrDefault(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "[grid]")
	assert.Contains(t, string(b), "500ms")

	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridctl.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[storage]
type = "json"
path = "grid.json"

[grid]
debounce = "250ms"
keep_failed_input = true

[log]
level = "debug"
`), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.Grid.Debounce))
	assert.Equal(t, types.DefaultPageSize, cfg.Grid.PageSize)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, types.LogLevelDebug, cfg.LogLevel())

	sc := cfg.StorageConfig()
	assert.Equal(t, storage.JSONStorageType, sc.Type)
	assert.Equal(t, "grid.json", sc.FilePath)

	opts := cfg.GridOptions()
	assert.True(t, opts.KeepFailedInput)
	assert.Equal(t, 250*time.Millisecond, opts.Debounce)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gridctl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[grid]\ndebounce = \"soon\"\n"), 0644))

	_, err := config.Load(path)
	assert.Error(t, err)
}
