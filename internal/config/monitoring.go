package config

import (
	"time"

	pkgconfig "github.com/lucinedinatale/chatbot-backend/pkg/config"
)

// MonitoringConfig holds health check and metrics configuration
type MonitoringConfig struct {
	HealthCheckTimeout time.Duration `env:"HEALTH_CHECK_TIMEOUT" yaml:"health_check_timeout" default:"10s"`
	FailureThreshold   int           `env:"HEALTH_FAILURE_THRESHOLD" yaml:"failure_threshold" default:"3"`

	Metrics pkgconfig.MetricsConfig `yaml:"metrics,inline"`
}
