// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
	"github.com/aristath/qdr/internal/scheduler"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Directory for the cache database (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	Optimizer     optimization.Settings
	DefaultPeriod string

	Watchlist       []string
	RefreshSchedule string
	CleanupSchedule string

	YahooBaseURL   string
	YahooRateLimit float64 // requests per second
	BinanceBaseURL string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("QDR_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:  dataDir,
		Port:     getEnvAsInt("GO_PORT", 8001),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Optimizer: optimization.Settings{
			NumSlices:           getEnvAsInt("QDR_DEFAULT_SLICES", 20),
			NumReads:            getEnvAsInt("QDR_DEFAULT_READS", optimization.DefaultReads),
			NumSweeps:           getEnvAsInt("QDR_DEFAULT_SWEEPS", optimization.DefaultSweeps),
			AnnualizationFactor: getEnvAsFloat("QDR_ANNUALIZATION_FACTOR", optimization.DefaultAnnualizationFactor),
			PenaltyMultiplier:   getEnvAsFloat("QDR_PENALTY_MULTIPLIER", optimization.DefaultPenaltyMultiplier),
			Workers:             getEnvAsInt("QDR_WORKERS", runtime.NumCPU()),
			MaxFlipsPerRead:     getEnvAsInt("QDR_MAX_FLIPS_PER_READ", optimization.DefaultMaxFlipsPerRead),
			RejectZeroVariance:  getEnvAsBool("QDR_REJECT_ZERO_VARIANCE", false),
			MaxReads:            getEnvAsInt("QDR_MAX_READS", optimization.DefaultMaxReads),
			MaxSweeps:           getEnvAsInt("QDR_MAX_SWEEPS", optimization.DefaultMaxSweeps),
		},
		DefaultPeriod: getEnv("QDR_DEFAULT_PERIOD", marketdata.DefaultPeriod),

		Watchlist:       marketdata.NormalizeSymbols(strings.Split(getEnv("QDR_WATCHLIST", ""), ",")),
		RefreshSchedule: getEnv("QDR_REFRESH_SCHEDULE", "0 */30 * * * *"),
		CleanupSchedule: getEnv("QDR_CLEANUP_SCHEDULE", "0 0 3 * * *"),

		YahooBaseURL:   getEnv("YAHOO_BASE_URL", "https://query1.finance.yahoo.com"),
		YahooRateLimit: getEnvAsFloat("YAHOO_RATE_LIMIT", 2),
		BinanceBaseURL: getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if configuration values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("GO_PORT must be in 1..65535, got %d", c.Port)
	}
	if _, err := optimization.NumBits(c.Optimizer.NumSlices); err != nil {
		return fmt.Errorf("QDR_DEFAULT_SLICES: %w", err)
	}
	if c.Optimizer.NumReads < 1 {
		return fmt.Errorf("QDR_DEFAULT_READS must be >= 1, got %d", c.Optimizer.NumReads)
	}
	if c.Optimizer.NumSweeps < 1 {
		return fmt.Errorf("QDR_DEFAULT_SWEEPS must be >= 1, got %d", c.Optimizer.NumSweeps)
	}
	if c.Optimizer.AnnualizationFactor <= 0 {
		return fmt.Errorf("QDR_ANNUALIZATION_FACTOR must be > 0, got %v", c.Optimizer.AnnualizationFactor)
	}
	if c.Optimizer.PenaltyMultiplier <= 0 {
		return fmt.Errorf("QDR_PENALTY_MULTIPLIER must be > 0, got %v", c.Optimizer.PenaltyMultiplier)
	}
	if c.Optimizer.Workers < 1 {
		return fmt.Errorf("QDR_WORKERS must be >= 1, got %d", c.Optimizer.Workers)
	}
	if c.Optimizer.MaxFlipsPerRead < 1 {
		return fmt.Errorf("QDR_MAX_FLIPS_PER_READ must be >= 1, got %d", c.Optimizer.MaxFlipsPerRead)
	}
	if c.Optimizer.MaxReads < c.Optimizer.NumReads {
		return fmt.Errorf("QDR_MAX_READS must be >= QDR_DEFAULT_READS (%d), got %d", c.Optimizer.NumReads, c.Optimizer.MaxReads)
	}
	if c.Optimizer.MaxSweeps < c.Optimizer.NumSweeps {
		return fmt.Errorf("QDR_MAX_SWEEPS must be >= QDR_DEFAULT_SWEEPS (%d), got %d", c.Optimizer.NumSweeps, c.Optimizer.MaxSweeps)
	}
	if err := marketdata.ValidatePeriod(c.DefaultPeriod); err != nil {
		return fmt.Errorf("QDR_DEFAULT_PERIOD: %w", err)
	}

	for name, spec := range map[string]string{
		"QDR_REFRESH_SCHEDULE": c.RefreshSchedule,
		"QDR_CLEANUP_SCHEDULE": c.CleanupSchedule,
	} {
		if _, err := scheduler.Parser.Parse(spec); err != nil {
			return fmt.Errorf("%s: invalid cron spec %q: %w", name, spec, err)
		}
	}

	return nil
}

// CachePath is the location of the market-data cache database.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
