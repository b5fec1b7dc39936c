package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "memory", cfg.Chat.Backend)
	assert.False(t, cfg.Bus.Enabled)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  address: ":9999"
  static_dir: "www"
logging:
  level: debug
  format: json
chat:
  backend: redis
  redis_url: "redis://localhost:6380"
bus:
  enabled: true
  channel: "test.events"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, "www", cfg.Server.StaticDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "redis", cfg.Chat.Backend)
	assert.Equal(t, "redis://localhost:6380", cfg.Chat.RedisURL)
	assert.True(t, cfg.Bus.Enabled)
	assert.Equal(t, "test.events", cfg.Bus.Channel)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "bad-level.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: verbose\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	path = filepath.Join(dir, "bad-backend.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chat:\n  backend: postgres\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
