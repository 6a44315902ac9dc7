package ratelimit

import "time"

// Config holds retry and admission-control settings for spreadsheet API calls
type Config struct {
	MaxAttempts       int           `json:"maxAttempts"`
	BackoffUnit       time.Duration `json:"backoffUnit"`
	RequestsPerSecond float64       `json:"requestsPerSecond"`
	Burst             int           `json:"burst"`
}

// DefaultConfig returns the default rate limit configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:       5,
		BackoffUnit:       20 * time.Second,
		RequestsPerSecond: 1,
		Burst:             1,
	}
}
