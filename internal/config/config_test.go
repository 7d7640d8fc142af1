package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Hour, cfg.Cache.TarballTTL)
}

func TestLoadFromReaderAppliesDefaultsToUnsetFields(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`pure: true
log:
  level: debug
`))
	require.NoError(t, err)
	assert.True(t, cfg.Pure)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format, "unset format should fall back to default")
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Level = "noisy"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Timeout = -1
	require.Error(t, cfg.Validate())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pure = true
	cfg.Registries.Flag = []string{"nixpkgs=github:NixOS/nixpkgs"}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, loaded.Pure)
	assert.Equal(t, []string{"nixpkgs=github:NixOS/nixpkgs"}, loaded.Registries.Flag)
}
