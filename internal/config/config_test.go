package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHOPTERM_API_URL", "https://shop.example.com/api/")
	t.Setenv("SHOPTERM_CACHE_DIR", dir)
	t.Setenv("SHOPTERM_SESSION_BACKEND", "keyring")
	t.Setenv("SHOPTERM_REFRESH_TIMEOUT", "3s")
	t.Setenv("SHOPTERM_PAGE_SIZE", "24")
	t.Setenv("SHOPTERM_REQUESTS_PER_SECOND", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, dir, cfg.CacheDir)
	assert.Equal(t, filepath.Join(dir, "cache.db"), cfg.DBPath)
	assert.Equal(t, SessionBackendKeyring, cfg.SessionBackend)
	assert.Equal(t, 3*time.Second, cfg.RefreshTimeout)
	assert.Equal(t, 24, cfg.PageSize)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("SHOPTERM_REQUEST_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHOPTERM_REQUEST_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"relative url", func(c *Config) { c.APIBaseURL = "/api" }, "invalid API base URL"},
		{"unknown backend", func(c *Config) { c.SessionBackend = "file" }, "unknown session backend"},
		{"zero timeout", func(c *Config) { c.RefreshTimeout = 0 }, "timeouts"},
		{"zero rate", func(c *Config) { c.RequestsPerSecond = 0 }, "requests per second"},
		{"page too big", func(c *Config) { c.PageSize = 500 }, "page size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
