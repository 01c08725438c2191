package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the price history database
	Port             int
	LogLevel         string
	DevMode          bool
	RiskFreeRate     float64
	FrontierSamples  int
	Confidence       float64
	KellyCap         float64
	MaxStakeFraction float64
	Seed             uint64
	TrackedSymbols   []string // symbols refreshed into the price history database
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory with fallback logic
	dataDir := getEnv("DATA_DIR", "")
	if dataDir == "" {
		if _, err := os.Stat("./data"); err == nil {
			dataDir = "./data"
		} else {
			dataDir = "../data"
		}
	}

	cfg := &Config{
		DataDir:          dataDir,
		Port:             getEnvAsInt("PORT", 8001),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		RiskFreeRate:     getEnvAsFloat("RISK_FREE_RATE", 0.02),
		FrontierSamples:  getEnvAsInt("FRONTIER_SAMPLES", 2000),
		Confidence:       getEnvAsFloat("CONFIDENCE", 0.95),
		KellyCap:         getEnvAsFloat("KELLY_CAP", 0.25),
		MaxStakeFraction: getEnvAsFloat("MAX_STAKE_FRACTION", 0.10),
		Seed:             uint64(getEnvAsInt("RANDOM_SEED", 1)),
		TrackedSymbols:   getEnvAsList("TRACKED_SYMBOLS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Confidence <= 0 || c.Confidence >= 1 {
		return fmt.Errorf("confidence %.3f outside (0,1)", c.Confidence)
	}
	if c.KellyCap <= 0 || c.KellyCap > 1 {
		return fmt.Errorf("kelly cap %.3f outside (0,1]", c.KellyCap)
	}
	if c.MaxStakeFraction <= 0 || c.MaxStakeFraction > 1 {
		return fmt.Errorf("max stake fraction %.3f outside (0,1]", c.MaxStakeFraction)
	}
	if c.FrontierSamples <= 0 {
		return fmt.Errorf("frontier samples must be positive, got %d", c.FrontierSamples)
	}
	return nil
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

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
