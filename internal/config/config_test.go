package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.InDelta(t, 0.02, cfg.RiskFreeRate, 1e-12)
	assert.Equal(t, 2000, cfg.FrontierSamples)
	assert.InDelta(t, 0.95, cfg.Confidence, 1e-12)
	assert.InDelta(t, 0.25, cfg.KellyCap, 1e-12)
	assert.InDelta(t, 0.10, cfg.MaxStakeFraction, 1e-12)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("RISK_FREE_RATE", "0.035")
	t.Setenv("FRONTIER_SAMPLES", "500")
	t.Setenv("KELLY_CAP", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.InDelta(t, 0.035, cfg.RiskFreeRate, 1e-12)
	assert.Equal(t, 500, cfg.FrontierSamples)
	assert.InDelta(t, 0.5, cfg.KellyCap, 1e-12)
}

func TestLoad_TrackedSymbols(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("TRACKED_SYMBOLS", "SPY, QQQ ,IWM,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"SPY", "QQQ", "IWM"}, cfg.TrackedSymbols)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("PORT", "not-a-number")
	t.Setenv("RISK_FREE_RATE", "abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Port)
	assert.InDelta(t, 0.02, cfg.RiskFreeRate, 1e-12)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Port = -1 }, "invalid port"},
		{"bad confidence", func(c *Config) { c.Confidence = 1.5 }, "confidence"},
		{"bad kelly cap", func(c *Config) { c.KellyCap = 0 }, "kelly cap"},
		{"bad stake fraction", func(c *Config) { c.MaxStakeFraction = 2 }, "max stake fraction"},
		{"bad samples", func(c *Config) { c.FrontierSamples = -5 }, "frontier samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Port:             8001,
				Confidence:       0.95,
				KellyCap:         0.25,
				MaxStakeFraction: 0.10,
				FrontierSamples:  1000,
			}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
