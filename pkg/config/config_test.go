package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 30, cfg.MaxAreas)
	assert.Equal(t, 100, cfg.MaxPerArea)
	assert.Equal(t, 5, cfg.MaxScrolls)
	assert.Equal(t, 2018, cfg.ModernYear)
	assert.True(t, cfg.BrowserHeadless)
	assert.Equal(t, 3000, cfg.DelayPageLoadMS)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("MAX_AREAS", "5")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("NAVIGATIONS_PER_SECOND", "0.5")
	t.Setenv("BROWSER_USER_AGENTS", " ua-one , ,ua-two")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 5, cfg.MaxAreas)
	assert.False(t, cfg.BrowserHeadless)
	assert.InDelta(t, 0.5, cfg.NavigationsPerSecond, 1e-9)
	assert.Equal(t, []string{"ua-one", "ua-two"}, cfg.UserAgents())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prospector.env")
	require.NoError(t, os.WriteFile(path, []byte("SERVER_PORT=9090\nMAX_SCROLLS=2\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 2, cfg.MaxScrolls)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.StoreDriver = "mysql" }, "STORE_DRIVER"},
		{"sqlite without path", func(c *Config) { c.StoreDriver = "sqlite"; c.SQLitePath = "" }, "SQLITE_PATH"},
		{"zero cap", func(c *Config) { c.MaxPerArea = 0 }, "MAX_PER_AREA"},
		{"no areas", func(c *Config) { c.MaxAreas = 0 }, "MAX_AREAS"},
		{"negative delay", func(c *Config) { c.DelayBetweenItemsMS = -1 }, "DELAY_BETWEEN_ITEMS_MS"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"no rate", func(c *Config) { c.NavigationsPerSecond = 0 }, "NAVIGATIONS_PER_SECOND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
