package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Plaid
	PlaidEnv          string
	PlaidClientID     string
	PlaidSecret       string
	PlaidClientName   string
	PlaidProducts     []string
	PlaidCountryCodes []string
	PlaidLanguage     string
	PlaidTimeout      time.Duration

	// Aggregation
	LookbackDays int

	// Transactions cache. TTL 0 disables caching, keeping every request a
	// fresh upstream fetch.
	CacheTTL  time.Duration
	CacheSize int

	// CORS
	AllowedOrigins []string
}

func Load() *Config {
	cfg := &Config{
		Port:     getEnv("PORT", "8000"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PlaidEnv:          getEnv("PLAID_ENV", "sandbox"),
		PlaidClientID:     getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:       getEnv("PLAID_SECRET", ""),
		PlaidClientName:   getEnv("PLAID_CLIENT_NAME", "BiggerNumbers"),
		PlaidProducts:     getEnvList("PLAID_PRODUCTS", "transactions"),
		PlaidCountryCodes: getEnvList("PLAID_COUNTRY_CODES", "GB"),
		PlaidLanguage:     getEnv("PLAID_LANGUAGE", "en"),
		PlaidTimeout:      getEnvDuration("PLAID_TIMEOUT", 30*time.Second),

		LookbackDays: getEnvInt("LOOKBACK_DAYS", 30),

		CacheTTL:  getEnvDuration("CACHE_TTL", 0),
		CacheSize: getEnvInt("CACHE_SIZE", 128),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "*"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate Plaid environment
	validEnvs := []string{"sandbox", "development", "production"}
	isValidEnv := false
	for _, env := range validEnvs {
		if c.PlaidEnv == env {
			isValidEnv = true
			break
		}
	}
	if !isValidEnv {
		errors = append(errors, fmt.Sprintf("invalid plaid environment '%s': must be one of %v", c.PlaidEnv, validEnvs))
	}

	// Credentials are required for every upstream call
	if c.PlaidClientID == "" {
		errors = append(errors, "PLAID_CLIENT_ID is required")
	}
	if c.PlaidSecret == "" {
		errors = append(errors, "PLAID_SECRET is required")
	}
	if strings.TrimSpace(c.PlaidClientName) == "" {
		errors = append(errors, "plaid client name cannot be empty")
	}

	if len(c.PlaidProducts) == 0 {
		errors = append(errors, "at least one plaid product is required")
	}
	if len(c.PlaidCountryCodes) == 0 {
		errors = append(errors, "at least one country code is required")
	}
	for _, cc := range c.PlaidCountryCodes {
		if len(cc) != 2 {
			errors = append(errors, fmt.Sprintf("invalid country code '%s': must be a two-letter ISO code", cc))
		}
	}
	if len(c.PlaidLanguage) != 2 {
		errors = append(errors, fmt.Sprintf("invalid language '%s': must be a two-letter code", c.PlaidLanguage))
	}

	if c.PlaidTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid plaid timeout %v: must be at least 1 second", c.PlaidTimeout))
	} else if c.PlaidTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid plaid timeout %v: must be at most 5 minutes", c.PlaidTimeout))
	}

	if c.LookbackDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid lookback days %d: must be at least 1", c.LookbackDays))
	} else if c.LookbackDays > 365 {
		errors = append(errors, fmt.Sprintf("invalid lookback days %d: must be at most 365", c.LookbackDays))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.CacheTTL > 0 && c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1 when caching is enabled", c.CacheSize))
	}

	if len(c.AllowedOrigins) == 0 {
		errors = append(errors, "at least one allowed origin is required")
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
