package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, DefaultHeaderPrefix, cfg.HeaderPrefix)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")

	cfg := DefaultConfig()
	cfg.ConsumerID = "c1"
	cfg.ConsumerSecret = "s3cret"
	cfg.Store = StoreRedis
	cfg.Timeout = 3 * time.Second
	require.NoError(t, cfg.SaveTo(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "c1", loaded.ConsumerID)
	assert.Equal(t, "s3cret", loaded.ConsumerSecret)
	assert.Equal(t, StoreRedis, loaded.Store)
	assert.Equal(t, 3*time.Second, loaded.Timeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: https://file.example\nstore: memory\n"), 0600))

	t.Setenv("OAHU_ENDPOINT", "https://env.example")
	t.Setenv("OAHU_LOG_CONSOLE", "true")
	t.Setenv("OAHU_TIMEOUT", "250ms")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.Endpoint)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.True(t, cfg.LogConsole)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
}

func TestLoadFromRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: [unterminated"), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.ConsumerID, cfg.ConsumerSecret = "c", "s"
	assert.NoError(t, cfg.Validate())
}
