package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docsearch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 384, cfg.Dimension)
	assert.Equal(t, 0.7, cfg.Search.Alpha)
	assert.Equal(t, 2*time.Hour, cfg.Cache.EmbeddingTTL)
	assert.Equal(t, 30*time.Minute, cfg.Cache.ResultTTL)
	assert.Equal(t, 4, cfg.Indexer.Workers)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().SnapshotDir, cfg.SnapshotDir)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
snapshot_dir: /tmp/snap
dimension: 8
search:
  default_k: 10
  alpha: 0.5
cache:
  enabled: true
  embedding_size: 10
  embedding_ttl: 5m
  result_size: 20
  result_ttl: 90s
log:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/snap", cfg.SnapshotDir)
	assert.Equal(t, 8, cfg.Dimension)
	assert.Equal(t, 10, cfg.Search.DefaultK)
	assert.Equal(t, 0.5, cfg.Search.Alpha)
	assert.Equal(t, 5*time.Minute, cfg.Cache.EmbeddingTTL)
	assert.Equal(t, 90*time.Second, cfg.Cache.ResultTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	// Unset sections keep their defaults
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, "local", cfg.Embedder.Provider)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, 384, cfg.Dimension)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "dimension: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "unknown_field: 1"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "dimension: -1"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvSnapshotDir, "/env/snap")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvMetricsAddr, ":9100")
	t.Setenv(EnvDimension, "16")

	cfg, err := Load(writeConfig(t, "snapshot_dir: /file/snap\ndimension: 8\n"))
	require.NoError(t, err)

	assert.Equal(t, "/env/snap", cfg.SnapshotDir)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, 16, cfg.Dimension)
}

func TestEnvDimensionNotInteger(t *testing.T) {
	t.Setenv(EnvDimension, "big")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRemoteProviderAPIKey(t *testing.T) {
	t.Setenv(EnvEmbeddingProvider, "jina")

	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "requires an api key")

	t.Setenv(EnvJinaAPIKey, "secret")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Embedder.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"empty snapshot dir", func(c *Config) { c.SnapshotDir = " " }, "snapshot_dir"},
		{"zero dimension", func(c *Config) { c.Dimension = 0 }, "dimension"},
		{"zero k", func(c *Config) { c.Search.DefaultK = 0 }, "default_k"},
		{"alpha above one", func(c *Config) { c.Search.Alpha = 1.1 }, "alpha"},
		{"zero cache size", func(c *Config) { c.Cache.ResultSize = 0 }, "cache sizes"},
		{"zero cache ttl", func(c *Config) { c.Cache.EmbeddingTTL = 0 }, "cache ttls"},
		{"unknown provider", func(c *Config) { c.Embedder.Provider = "cohere" }, "unknown embedder"},
		{"negative rate limit", func(c *Config) { c.Embedder.RequestsPerSecond = -1 }, "requests_per_second"},
		{"zero workers", func(c *Config) { c.Indexer.Workers = 0 }, "workers"},
		{"zero excerpt", func(c *Config) { c.Indexer.ExcerptChars = 0 }, "text limits"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	disabled := Default()
	disabled.Cache.Enabled = false
	disabled.Cache.ResultSize = 0
	assert.NoError(t, disabled.Validate())
}
