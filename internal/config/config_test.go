package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.InDelta(t, 2000, cfg.Analytics.TierVIP, 1e-9)
	assert.InDelta(t, 1000, cfg.Analytics.TierHigh, 1e-9)
	assert.InDelta(t, 500, cfg.Analytics.TierMedium, 1e-9)
	assert.InDelta(t, 2, cfg.Analytics.OutlierSigma, 1e-9)
	assert.Equal(t, 3, cfg.Analytics.TrendWindow)
	assert.False(t, cfg.Analytics.ExcludeFlagged)
	assert.Equal(t, "data/transactions.csv", cfg.Paths.InputCSV)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
analytics:
  tier_vip: 5000
  tier_high: 2500
  tier_medium: 800
  outlier_sigma: 3
  reference_date: "2024-07-01"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.InDelta(t, 5000, cfg.Analytics.TierVIP, 1e-9)
	assert.InDelta(t, 3, cfg.Analytics.OutlierSigma, 1e-9)

	ref, ok, err := cfg.Analytics.ParsedReferenceDate()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2024, ref.Year())
	assert.Equal(t, 7, int(ref.Month()))
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	t.Setenv("RETAIL_SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "port",
		},
		{
			name:    "non-positive sigma",
			mutate:  func(c *Config) { c.Analytics.OutlierSigma = 0 },
			wantErr: "sigma",
		},
		{
			name:    "non-positive trend window",
			mutate:  func(c *Config) { c.Analytics.TrendWindow = -1 },
			wantErr: "trend window",
		},
		{
			name: "tier order inverted",
			mutate: func(c *Config) {
				c.Analytics.TierVIP = 100
			},
			wantErr: "tier thresholds",
		},
		{
			name:    "bad reference date",
			mutate:  func(c *Config) { c.Analytics.ReferenceDate = "July 1st" },
			wantErr: "reference date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParsedReferenceDateEmpty(t *testing.T) {
	_, ok, err := AnalyticsConfig{}.ParsedReferenceDate()
	require.NoError(t, err)
	assert.False(t, ok)
}
