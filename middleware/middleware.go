package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"dropmark/config"

	"github.com/didip/tollbooth/v7"
	"github.com/didip/tollbooth/v7/limiter"
)

// RateLimitMiddleware creates a rate limiting middleware backed by tollbooth.
// Requests are limited per API key according to the key's plan; anonymous
// requests share the free-plan bucket per remote address.
func RateLimitMiddleware(apiConfig *config.APIConfig) func(http.Handler) http.Handler {
	limiters := make(map[string]*limiter.Limiter)
	for plan, planLimit := range apiConfig.PlanLimits {
		lmt := tollbooth.NewLimiter(float64(planLimit.RequestsPerMinute)/60.0, &limiter.ExpirableOptions{
			DefaultExpirationTTL: time.Hour,
		})
		lmt.SetBurst(planLimit.RequestsPerMinute)
		limiters[plan] = lmt
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !apiConfig.RateLimitEnabled {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := extractAPIKey(r)
			plan := planForKey(apiKey)

			key := apiKey
			if key == "" {
				key = r.RemoteAddr
			}

			lmt := limiters[plan]
			if httpError := tollbooth.LimitByKeys(lmt, []string{plan, key}); httpError != nil {
				w.Header().Set("X-RateLimit-Plan", plan)
				http.Error(w, httpError.Message, httpError.StatusCode)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// APIKeyMiddleware validates API keys
func APIKeyMiddleware(required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Health checks and documentation stay open
			if r.URL.Path == "/health" || r.URL.Path == "/docs" || strings.HasPrefix(r.URL.Path, "/docs/") {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := extractAPIKey(r)

			if required && apiKey == "" {
				http.Error(w, "API key required", http.StatusUnauthorized)
				return
			}

			if apiKey != "" && !isValidAPIKey(apiKey) {
				http.Error(w, "Invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), apiKeyContextKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// extractAPIKey extracts the API key from the request
func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
		if strings.HasPrefix(auth, "ApiKey ") {
			return strings.TrimPrefix(auth, "ApiKey ")
		}
	}

	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}

	return r.URL.Query().Get("api_key")
}

// planForKey derives the subscription plan from the key prefix
func planForKey(apiKey string) string {
	switch {
	case strings.HasPrefix(apiKey, "pro_"):
		return "pro"
	case strings.HasPrefix(apiKey, "basic_"):
		return "basic"
	default:
		return "free"
	}
}

// isValidAPIKey validates an API key's format
func isValidAPIKey(apiKey string) bool {
	if len(apiKey) < 10 {
		return false
	}

	if strings.HasPrefix(apiKey, "test_") {
		return true
	}

	validPrefixes := []string{"free_", "basic_", "pro_"}
	for _, prefix := range validPrefixes {
		if strings.HasPrefix(apiKey, prefix) {
			return true
		}
	}

	return false
}

// LoggingMiddleware logs API requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Printf("%s %s %d %v", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter captures the status code for logging
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
