package config

import (
	"time"
)

// APIConfig holds API configuration settings
type APIConfig struct {
	Version          string
	RequireAPIKey    bool
	RateLimitEnabled bool
	LoggingEnabled   bool
	CORSEnabled      bool
	MaxRequestSize   int64
	RequestTimeout   time.Duration
	RefreshWorkers   int
	PlanLimits       map[string]PlanLimit
}

// PlanLimit defines request limits for a subscription tier
type PlanLimit struct {
	RequestsPerMinute int
	DailyLimit        int
	MaxProducts       int
}

// DefaultAPIConfig returns the default API configuration
func DefaultAPIConfig() *APIConfig {
	return &APIConfig{
		Version:          "v1",
		RequireAPIKey:    getEnvBool("API_REQUIRE_KEY", true),
		RateLimitEnabled: getEnvBool("API_RATE_LIMIT_ENABLED", true),
		LoggingEnabled:   getEnvBool("API_LOGGING_ENABLED", true),
		CORSEnabled:      getEnvBool("API_CORS_ENABLED", true),
		MaxRequestSize:   int64(getEnvInt("API_MAX_REQUEST_SIZE", 10*1024*1024)),
		RequestTimeout:   getEnvDuration("API_REQUEST_TIMEOUT", 30*time.Second),
		RefreshWorkers:   getEnvInt("REFRESH_WORKERS", 5),
		PlanLimits: map[string]PlanLimit{
			"free": {
				RequestsPerMinute: 60,
				DailyLimit:        1000,
				MaxProducts:       50,
			},
			"basic": {
				RequestsPerMinute: 300,
				DailyLimit:        50000,
				MaxProducts:       1000,
			},
			"pro": {
				RequestsPerMinute: 1000,
				DailyLimit:        200000,
				MaxProducts:       20000,
			},
		},
	}
}

// LimitFor returns the plan limit for a plan name, falling back to free
func (c *APIConfig) LimitFor(plan string) PlanLimit {
	if limit, ok := c.PlanLimits[plan]; ok {
		return limit
	}
	return c.PlanLimits["free"]
}
