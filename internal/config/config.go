// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for the database file, always absolute
	DatabaseFile string // Database filename inside DataDir
	Host         string
	Port         int
	LogLevel     string
	LogPretty    bool

	OrderMatcherInterval    time.Duration
	PositionRevalueInterval time.Duration
	MarketRefreshInterval   time.Duration
	TradingBotInterval      time.Duration
	SystemLogRetentionDays  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PAPERPROFIT_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		DatabaseFile: getEnv("PAPERPROFIT_DB_FILE", "paperprofit.db"),
		Host:         getEnv("API_HOST", "0.0.0.0"),
		Port:         getEnvAsInt("API_PORT", 8000),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogPretty:    getEnvAsBool("LOG_PRETTY", false),

		OrderMatcherInterval:    time.Duration(getEnvAsInt("ORDER_MATCHER_INTERVAL_SECONDS", 5)) * time.Second,
		PositionRevalueInterval: time.Duration(getEnvAsInt("POSITION_REVALUE_INTERVAL_SECONDS", 30)) * time.Second,
		MarketRefreshInterval:   time.Duration(getEnvAsInt("MARKET_REFRESH_INTERVAL_SECONDS", 60)) * time.Second,
		TradingBotInterval:      time.Duration(getEnvAsInt("TRADING_BOT_INTERVAL_SECONDS", 300)) * time.Second,
		SystemLogRetentionDays:  getEnvAsInt("SYSTEM_LOG_RETENTION_DAYS", 30),
	}

	return cfg, nil
}

// DatabasePath returns the absolute path of the sqlite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
