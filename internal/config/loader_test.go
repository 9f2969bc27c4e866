package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  port: 9090
  read_timeout: 5s
log:
  level: debug
  format: console
standardizer:
  catalog_path: /etc/chargefix/pairs.tsv
  force_full_neutralization: true
  canonical_ordering: false
  concurrency: 8
  operations: [uncharge]
cache:
  backend: memory
  ttl: 10m
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DefaultWriteTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/etc/chargefix/pairs.tsv", cfg.Standardizer.CatalogPath)
	assert.True(t, cfg.Standardizer.ForceFullNeutralization)
	assert.False(t, cfg.Standardizer.Canonical())
	assert.Equal(t, 8, cfg.Standardizer.Concurrency)
	assert.Equal(t, []string{"uncharge"}, cfg.Standardizer.Operations)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("CHARGEFIX_SERVER_PORT", "7070")
	t.Setenv("CHARGEFIX_CACHE_BACKEND", "redis")
	t.Setenv("CHARGEFIX_REDIS_ADDR", "cache:6379")

	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHARGEFIX_STANDARDIZER_CANONICAL_ORDERING", "false")
	t.Setenv("CHARGEFIX_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Standardizer.Canonical())
	assert.Equal(t, "none", cfg.Cache.Backend)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	_, err = Load(createTempConfigFile(t, "cache:\n  backend: memcached\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")

	_, err = Load(createTempConfigFile(t, "server:\n  port: [1, 2]\n"))
	require.Error(t, err)
}

func TestMustLoad_Panics(t *testing.T) {
	assert.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}
