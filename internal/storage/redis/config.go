package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// GuestPlayerTTL expires guest players; registered players never expire
	GuestPlayerTTL time.Duration

	// CompletedGameTTL is applied to a game's record and data once it completes.
	// Zero keeps finished games forever.
	CompletedGameTTL time.Duration

	// MaxUpdateRetries bounds optimistic retries when a watched game changes underneath us
	MaxUpdateRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:              "redis://localhost:6379",
		PoolSize:         10,
		MinIdleConns:     2,
		GuestPlayerTTL:   24 * time.Hour,
		CompletedGameTTL: 30 * 24 * time.Hour,
		MaxUpdateRetries: 50,
	}
}
