package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Setenv("API_URL", "https://api.example.com")
	t.Setenv("OPS_TOKEN", "ops-token")
	t.Setenv("VENDOR_TOKEN", "vendor-token")
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_AllRequired(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIURL)
	assert.Equal(t, "ops-token", cfg.OpsToken)
	assert.Equal(t, "vendor-token", cfg.VendorToken)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_MissingToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("OPS_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPS_TOKEN")
}

func TestLoad_InvalidURL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("API_URL", "not a url")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_VendorTokenOptional(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("VENDOR_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.VendorToken)
	require.Error(t, cfg.RequireVendor())

	cfg.VendorToken = "vendor-token"
	require.NoError(t, cfg.RequireVendor())
}

func TestRequireCSP(t *testing.T) {
	cfg := &Config{}
	require.Error(t, cfg.RequireCSP())

	cfg.CSPTunnelURL = "https://tunnel.example.com"
	require.Error(t, cfg.RequireCSP())

	cfg.CSPToken = "csp-token"
	require.NoError(t, cfg.RequireCSP())
}

func TestRequireArchive(t *testing.T) {
	cfg := &Config{
		ArchiveEndpoint:  "http://localhost:9000",
		ArchiveBucket:    "snapshots",
		ArchiveAccessKey: "key",
	}
	require.Error(t, cfg.RequireArchive())

	cfg.ArchiveSecretKey = "secret"
	require.NoError(t, cfg.RequireArchive())
}
