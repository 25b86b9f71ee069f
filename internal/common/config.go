// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment     string           `toml:"environment"`
	DisplayCurrency string           `toml:"display_currency"` // Display currency for portfolio totals (default "USD")
	Storage         StorageConfig    `toml:"storage"`
	MarketData      MarketDataConfig `toml:"market_data"`
	Valuation       ValuationConfig  `toml:"valuation"`
	Logging         LoggingConfig    `toml:"logging"`
}

// StorageConfig holds the path for the embedded ledger store.
type StorageConfig struct {
	Path string `toml:"path"`
}

// MarketDataConfig holds market data API configuration
type MarketDataConfig struct {
	BaseURL    string `toml:"base_url"`
	APIKey     string `toml:"api_key"`
	RateLimit  int    `toml:"rate_limit"`  // requests per second
	Timeout    string `toml:"timeout"`
	MaxRetries int    `toml:"max_retries"` // bounded retries on rate-limit responses
}

// GetTimeout parses and returns the timeout duration
func (c *MarketDataConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ValuationConfig tunes the valuation series builder and price prefetch.
type ValuationConfig struct {
	LookbackDays int    `toml:"lookback_days"` // calendar days to look back for a missing price
	BatchSize    int    `toml:"batch_size"`    // concurrent price fetches per batch
	BatchPause   string `toml:"batch_pause"`   // pause between fetch batches
}

// GetBatchPause parses and returns the inter-batch pause duration
func (c *ValuationConfig) GetBatchPause() time.Duration {
	d, err := time.ParseDuration(c.BatchPause)
	if err != nil {
		return 200 * time.Millisecond
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:     "development",
		DisplayCurrency: "USD",
		Storage: StorageConfig{
			Path: "data/ledger",
		},
		MarketData: MarketDataConfig{
			BaseURL:    "https://marketdata.openfolio.dev/api",
			RateLimit:  10,
			Timeout:    "30s",
			MaxRetries: 3,
		},
		Valuation: ValuationConfig{
			LookbackDays: 5,
			BatchSize:    5,
			BatchPause:   "200ms",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	validateDisplayCurrency(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("FOLIO_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if dc := os.Getenv("FOLIO_DISPLAY_CURRENCY"); dc != "" {
		config.DisplayCurrency = strings.ToUpper(dc)
	}

	if key := os.Getenv("FOLIO_MARKETDATA_API_KEY"); key != "" {
		config.MarketData.APIKey = key
	}

	if u := os.Getenv("FOLIO_MARKETDATA_BASE_URL"); u != "" {
		config.MarketData.BaseURL = u
	}

	if rl := os.Getenv("FOLIO_MARKETDATA_RATE_LIMIT"); rl != "" {
		if n, err := strconv.Atoi(rl); err == nil {
			config.MarketData.RateLimit = n
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// validateDisplayCurrency ensures DisplayCurrency is a 3-letter code, defaulting to "USD".
func validateDisplayCurrency(config *Config) {
	dc := strings.ToUpper(strings.TrimSpace(config.DisplayCurrency))
	if len(dc) != 3 {
		dc = "USD"
	}
	config.DisplayCurrency = dc
}
