package redis

import "time"

// Config holds Redis connection and retention settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379/0).
	// Pool and timeout fields below override any set in the URL when non-zero.
	URL string

	PoolSize     int
	MinIdleConns int

	// ConnectTimeout bounds the startup ping
	ConnectTimeout time.Duration
	// CommandTimeout bounds socket reads and writes per command
	CommandTimeout time.Duration

	// Guest profiles expire after GuestPlayerTTL without a save; rooms after
	// RoomTTL without a membership change. Zero disables expiry.
	GuestPlayerTTL time.Duration
	RoomTTL        time.Duration
}

// DefaultConfig returns the settings used by the server
func DefaultConfig() Config {
	return Config{
		URL:            "redis://localhost:6379",
		PoolSize:       10,
		MinIdleConns:   2,
		ConnectTimeout: 5 * time.Second,
		CommandTimeout: 2 * time.Second,
		GuestPlayerTTL: 24 * time.Hour,
		RoomTTL:        24 * time.Hour,
	}
}
