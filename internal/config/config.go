// Package config defines the application configuration, loaded from
// environment variables with optional YAML overlay.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	pkgconfig "github.com/lucinedinatale/chatbot-backend/pkg/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

// AppConfig holds all application configuration
type AppConfig struct {
	// Service configuration
	ServiceName string `env:"SERVICE_NAME" yaml:"service_name" default:"lucine-chatbot-backend"`
	Version     string `env:"VERSION" yaml:"version" default:"dev"`
	Environment string `env:"ENVIRONMENT" yaml:"environment" default:"development"`

	// HTTP server configuration
	HTTP           pkgconfig.HTTPServerConfig `yaml:"http,inline"`
	RequestTimeout time.Duration              `env:"REQUEST_TIMEOUT" yaml:"request_timeout" default:"30s"`

	// OpenAI configuration
	OpenAI OpenAIConfig `yaml:"openai,inline"`

	// Ticketing platform configuration
	Tickets TicketsConfig `yaml:"tickets,inline"`

	// Booking cart configuration
	Cart CartConfig `yaml:"cart,inline"`

	// WhatsApp notification configuration
	WhatsApp WhatsAppConfig `yaml:"whatsapp,inline"`

	// Conversation log sink configuration
	LogSink LogSinkConfig `yaml:"log_sink,inline"`

	// Session and rate limiting configuration
	Limits LimitsConfig `yaml:"limits,inline"`

	// Logging configuration
	Logging pkgconfig.CommonConfig `yaml:"logging,inline"`

	// Monitoring configuration
	Monitoring MonitoringConfig `yaml:"monitoring,inline"`

	// Security configuration
	Security SecurityConfig `yaml:"security,inline"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" yaml:"cors_allowed_origins" default:"https://lucinedinatale.it,http://localhost:3000"`
	MaxRequestSize     int64    `env:"MAX_REQUEST_SIZE" yaml:"max_request_size" default:"65536"` // 64KB default
	OperatorToken      string   `env:"OPERATOR_TOKEN" yaml:"operator_token"`
}

// Validate validates the configuration and returns an error if invalid
func (c *AppConfig) Validate() error {
	var result error

	if err := c.Logging.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.HTTP.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.Monitoring.Metrics.Validate(); err != nil {
		result = multierror.Append(result, err)
	}

	if c.RequestTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("request_timeout must be greater than 0"))
	}

	if c.OpenAI.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("openai_timeout must be greater than 0"))
	}

	if c.Tickets.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("tickets_timeout must be greater than 0"))
	}

	if c.Cart.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("cart_timeout must be greater than 0"))
	}

	if c.Limits.RateLimitWindow <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate_limit_window must be greater than 0"))
	}

	if c.Limits.RateLimitMax <= 0 {
		result = multierror.Append(result, fmt.Errorf("rate_limit_max must be greater than 0"))
	}

	if c.Limits.SessionTTL <= 0 {
		result = multierror.Append(result, fmt.Errorf("session_ttl must be greater than 0"))
	}

	if c.Limits.HistoryLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("history_limit must be greater than 0"))
	}

	if c.Limits.MaxMessageLength <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_message_length must be greater than 0"))
	}

	if c.Limits.OperatorLiveness <= 0 {
		result = multierror.Append(result, fmt.Errorf("operator_liveness must be greater than 0"))
	}

	if c.WhatsApp.Enabled && c.WhatsApp.BaseURL == "" {
		result = multierror.Append(result, fmt.Errorf("whatsapp_base_url is required when whatsapp notifications are enabled"))
	}

	if c.LogSink.Enabled && c.LogSink.URL == "" {
		result = multierror.Append(result, fmt.Errorf("log_sink_url is required when the log sink is enabled"))
	}

	if c.Security.MaxRequestSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_request_size must be greater than 0"))
	}

	return result
}

// GetLogLevel returns the parsed logger level
func (c *AppConfig) GetLogLevel() logger.Level {
	switch strings.ToLower(c.Logging.LogLevel) {
	case "debug":
		return logger.DebugLevel
	case "warn", "warning":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

// LogConfig logs the current configuration (without sensitive data)
func (c *AppConfig) LogConfig(log logger.Logger) {
	log.Info("Application configuration loaded",
		logger.StringField("service_name", c.ServiceName),
		logger.StringField("version", c.Version),
		logger.StringField("environment", c.Environment),
		logger.IntField("port", c.HTTP.Port),
		logger.StringField("openai_model", c.OpenAI.Model),
		logger.StringField("log_level", c.Logging.LogLevel),
		logger.StringField("log_format", c.Logging.LogFormat),
		logger.BoolField("metrics_enabled", c.Monitoring.Metrics.EnableHTTPMetrics),
		logger.BoolField("whatsapp_enabled", c.WhatsApp.Enabled),
		logger.BoolField("log_sink_enabled", c.LogSink.Enabled),
		logger.IntField("rate_limit_max", c.Limits.RateLimitMax),
		logger.DurationField("session_ttl", c.Limits.SessionTTL),
	)
}
