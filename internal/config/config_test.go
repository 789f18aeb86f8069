package config

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qdr/internal/modules/optimization"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("QDR_DATA_DIR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.DataDir))
	assert.Equal(t, 8001, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 20, cfg.Optimizer.NumSlices)
	assert.Equal(t, 100, cfg.Optimizer.NumReads)
	assert.Equal(t, 1000, cfg.Optimizer.NumSweeps)
	assert.Equal(t, 252.0, cfg.Optimizer.AnnualizationFactor)
	assert.Equal(t, 2.0, cfg.Optimizer.PenaltyMultiplier)
	assert.Equal(t, runtime.NumCPU(), cfg.Optimizer.Workers)
	assert.Equal(t, optimization.DefaultMaxReads, cfg.Optimizer.MaxReads)
	assert.Equal(t, optimization.DefaultMaxSweeps, cfg.Optimizer.MaxSweeps)
	assert.Equal(t, optimization.DefaultMaxFlipsPerRead, cfg.Optimizer.MaxFlipsPerRead)
	assert.Equal(t, "1y", cfg.DefaultPeriod)
	assert.Empty(t, cfg.Watchlist)
	assert.Equal(t, 2.0, cfg.YahooRateLimit)
	assert.Equal(t, filepath.Join(cfg.DataDir, "cache.db"), cfg.CachePath())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("GO_PORT", "9100")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("QDR_DEFAULT_SLICES", "40")
	t.Setenv("QDR_WORKERS", "3")
	t.Setenv("QDR_REJECT_ZERO_VARIANCE", "1")
	t.Setenv("QDR_WATCHLIST", "aapl, msft,,BTC-USD")
	t.Setenv("QDR_DEFAULT_PERIOD", "6mo")
	t.Setenv("YAHOO_RATE_LIMIT", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 40, cfg.Optimizer.NumSlices)
	assert.Equal(t, 3, cfg.Optimizer.Workers)
	assert.True(t, cfg.Optimizer.RejectZeroVariance)
	assert.Equal(t, []string{"AAPL", "MSFT", "BTC-USD"}, cfg.Watchlist)
	assert.Equal(t, "6mo", cfg.DefaultPeriod)
	assert.Equal(t, 0.5, cfg.YahooRateLimit)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"GO_PORT", "70000"},
		{"QDR_DEFAULT_SLICES", "0"},
		{"QDR_DEFAULT_READS", "-1"},
		{"QDR_DEFAULT_PERIOD", "7y"},
		{"QDR_REFRESH_SCHEDULE", "every tuesday"},
		{"QDR_PENALTY_MULTIPLIER", "-2"},
		{"QDR_MAX_FLIPS_PER_READ", "0"},
		{"QDR_MAX_READS", "10"},
		{"QDR_MAX_SWEEPS", "999"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers_IgnoreGarbage(t *testing.T) {
	t.Setenv("QDR_TEST_INT", "abc")
	t.Setenv("QDR_TEST_FLOAT", "x1")
	t.Setenv("QDR_TEST_BOOL", "maybe")

	assert.Equal(t, 7, getEnvAsInt("QDR_TEST_INT", 7))
	assert.Equal(t, 1.5, getEnvAsFloat("QDR_TEST_FLOAT", 1.5))
	assert.True(t, getEnvAsBool("QDR_TEST_BOOL", true))
}
