package config

import "time"

// LogSinkConfig holds configuration for the external conversation log sink.
type LogSinkConfig struct {
	Enabled    bool          `env:"LOG_SINK_ENABLED" yaml:"enabled" default:"false"`
	URL        string        `env:"LOG_SINK_URL" yaml:"url"`
	BufferSize int           `env:"LOG_SINK_BUFFER" yaml:"buffer_size" default:"256"`
	Timeout    time.Duration `env:"LOG_SINK_TIMEOUT" yaml:"timeout" default:"10s"`
}
