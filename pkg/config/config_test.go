package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("missing file must yield defaults (-want +got):\n%s", diff)
	}
}

func TestLoadParsesDurationString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: 30s\ndebug: true\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Debug)
	// Keys absent from the file keep their defaults.
	assert.Equal(t, Default().CachePath, cfg.CachePath)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: quick\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing timeout")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.CacheURL = "https://cache.example.com"
	cfg.Platform = "aarch64-darwin"
	cfg.Timeout = 90 * time.Second

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("config round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestDefaultCachePathEnvOverride(t *testing.T) {
	t.Setenv("DEVSHELL_CACHE_PATH", "/tmp/elsewhere")
	assert.Equal(t, "/tmp/elsewhere", Default().CachePath)
}
