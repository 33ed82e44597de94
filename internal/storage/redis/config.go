package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// UnverifiedAccountTTL bounds how long an account that never verifies
	// holds on to its email and username. Zero disables expiry.
	UnverifiedAccountTTL time.Duration

	// MaxTxRetries is how many times a create is retried when its WATCHed
	// index keys change underneath it
	MaxTxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:                  "redis://localhost:6379",
		PoolSize:             10,
		MinIdleConns:         2,
		UnverifiedAccountTTL: 7 * 24 * time.Hour,
		MaxTxRetries:         3,
	}
}
