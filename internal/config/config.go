package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	JWTSecret      string
	Environment    string

	// Liveness protocol. Timeout must stay strictly greater than the
	// interval or every presenter flaps between beats.
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// Winner reveal ceremony
	RevealCleanupDelay time.Duration

	// Public vote endpoint throttling (per device fingerprint)
	VoteRatePerSecond float64
	VoteRateBurst     int

	// Default scoring weights, used when a session has none configured.
	// Raw percents; renormalized to 1.0 before use.
	DefaultJuryWeight   int
	DefaultPublicWeight int
	DefaultSocialWeight int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                getEnv("PORT", "8080"),
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174")),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", ""),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		Environment:         getEnv("ENVIRONMENT", "production"),
		HeartbeatInterval:   getDurationEnv("HEARTBEAT_INTERVAL", 5*time.Second),
		HeartbeatTimeout:    getDurationEnv("HEARTBEAT_TIMEOUT", 12*time.Second),
		RevealCleanupDelay:  getDurationEnv("REVEAL_CLEANUP_DELAY", 45*time.Second),
		VoteRatePerSecond:   getFloatEnv("VOTE_RATE_PER_SECOND", 1),
		VoteRateBurst:       getIntEnv("VOTE_RATE_BURST", 5),
		DefaultJuryWeight:   getIntEnv("DEFAULT_JURY_WEIGHT", 50),
		DefaultPublicWeight: getIntEnv("DEFAULT_PUBLIC_WEIGHT", 30),
		DefaultSocialWeight: getIntEnv("DEFAULT_SOCIAL_WEIGHT", 20),
	}, nil
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getFloatEnv gets a float environment variable with a fallback value
func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

// getDurationEnv gets a duration environment variable with a fallback value
func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
