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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  path: "test.db"
rates:
  provider: "http"
  cache_ttl: 5m
logger:
  level: "debug"
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "test.db", cfg.Database.Path)
	assert.Equal(t, "http", cfg.Rates.Provider)
	assert.Equal(t, 5*time.Minute, cfg.Rates.CacheTTL)
	assert.Equal(t, "debug", cfg.Logger.Level)

	// Defaults fill unspecified values.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoad_StaticProvider(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "test.db"
rates:
  provider: "static"
  static_pairs:
    "EUR/USD": 1.10
`)

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "static", cfg.Rates.Provider)
	assert.InDelta(t, 1.10, cfg.Rates.StaticPairs["EUR/USD"], 0.0001)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "unknown rates provider",
			content: `
database:
  path: "test.db"
rates:
  provider: "oracle"
`,
		},
		{
			name: "static provider without pairs",
			content: `
database:
  path: "test.db"
rates:
  provider: "static"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
