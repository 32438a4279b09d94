package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SourceConfig holds configuration for the external catalog source
type SourceConfig struct {
	PrimaryDomain   string
	MobileDomain    string
	RegionalDomain  string
	AssetHost       string
	MarkupPercent   float64
	FloorPrice      float64
	FetchTimeout    time.Duration
	DefaultCurrency string
	DefaultLocale   string
}

// LoadSourceConfig loads the external source configuration from environment variables
func LoadSourceConfig() *SourceConfig {
	return &SourceConfig{
		PrimaryDomain:   getEnv("SOURCE_PRIMARY_DOMAIN", "www.aliexpress.com"),
		MobileDomain:    getEnv("SOURCE_MOBILE_DOMAIN", "m.aliexpress.com"),
		RegionalDomain:  getEnv("SOURCE_REGIONAL_DOMAIN", "aliexpress.ru"),
		AssetHost:       getEnv("SOURCE_ASSET_HOST", "alicdn.com"),
		MarkupPercent:   getEnvFloat("MARKUP_PERCENT", 30.0),
		FloorPrice:      getEnvFloat("FLOOR_PRICE", 9.99),
		FetchTimeout:    getEnvDuration("SOURCE_FETCH_TIMEOUT", 30*time.Second),
		DefaultCurrency: getEnv("SOURCE_DEFAULT_CURRENCY", "USD"),
		DefaultLocale:   getEnv("SOURCE_DEFAULT_LOCALE", "en_US"),
	}
}

// MirrorBases returns the ordered list of mirror base URLs, primary first
func (c *SourceConfig) MirrorBases() []string {
	return []string{
		"https://" + c.PrimaryDomain,
		"https://" + c.MobileDomain,
		"https://" + c.RegionalDomain,
	}
}

// getEnv gets environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable or returns default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
