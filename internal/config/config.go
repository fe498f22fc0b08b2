// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AlpacaConfig holds market-data provider configuration
type AlpacaConfig struct {
	BaseURL   string // Data API base URL (e.g. "https://data.alpaca.markets/v2")
	APIKey    string
	APISecret string
	Feed      string // "iex" (free plan) or "sip"
	AuthMode  string // "trading" (header key/secret) or "broker" (basic auth)
}

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for the database (always absolute)
	Port           int
	LogLevel       string
	DevMode        bool
	AdminToken     string   // When set, admin endpoints require X-Admin-Token
	SymbolUniverse []string // Default universe for daily runs
	NominalCapital float64  // Converts day_return into a display P&L
	RunSchedule    string   // Cron expression for the daily scoring run; empty disables
	LLMRatePerMin  int      // Upper bound on LLM calls per minute across a run
	Alpaca         AlpacaConfig
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		AdminToken:     getEnv("ADMIN_TOKEN", ""),
		SymbolUniverse: ParseUniverse(getEnv("SYMBOL_UNIVERSE", "AAPL,MSFT,GOOG")),
		NominalCapital: getEnvAsFloat("NOMINAL_CAPITAL", 10000),
		RunSchedule:    getEnv("RUN_SCHEDULE", ""),
		LLMRatePerMin:  getEnvAsInt("LLM_RATE_PER_MIN", 60),
		Alpaca: AlpacaConfig{
			BaseURL:   getEnv("ALPACA_BASE_URL", "https://data.alpaca.markets/v2"),
			APIKey:    getEnv("ALPACA_API_KEY", ""),
			APISecret: getEnv("ALPACA_API_SECRET", ""),
			Feed:      getEnv("ALPACA_FEED", "iex"),
			AuthMode:  getEnv("ALPACA_AUTH_MODE", "trading"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.NominalCapital <= 0 {
		return fmt.Errorf("NOMINAL_CAPITAL must be positive, got %f", c.NominalCapital)
	}
	// Alpaca credentials are optional at startup; the price fetcher reports
	// a configuration error at run time when they are missing.
	return nil
}

// ParseUniverse splits a comma-separated symbol list, trimming whitespace,
// uppercasing tickers and dropping empty entries.
func ParseUniverse(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.ToUpper(strings.TrimSpace(p))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
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
