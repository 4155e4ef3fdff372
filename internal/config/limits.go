package config

import "time"

// LimitsConfig holds session lifecycle and rate limiting configuration.
type LimitsConfig struct {
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" yaml:"rate_limit_window" default:"60s"`
	RateLimitMax     int           `env:"RATE_LIMIT_MAX" yaml:"rate_limit_max" default:"10"`
	SessionTTL       time.Duration `env:"SESSION_TTL" yaml:"session_ttl" default:"24h"`
	SweepSchedule    string        `env:"SESSION_SWEEP_SCHEDULE" yaml:"sweep_schedule" default:"@every 10m"`
	HistoryLimit     int           `env:"HISTORY_LIMIT" yaml:"history_limit" default:"50"`
	MaxMessageLength int           `env:"MAX_MESSAGE_LENGTH" yaml:"max_message_length" default:"1000"`
	OperatorLiveness time.Duration `env:"OPERATOR_LIVENESS" yaml:"operator_liveness" default:"5m"`
}
