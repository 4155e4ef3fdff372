package config

import "time"

// WhatsAppConfig holds configuration for WhatsApp handover notifications.
type WhatsAppConfig struct {
	Enabled      bool          `env:"WHATSAPP_ENABLED" yaml:"enabled" default:"false"`
	BaseURL      string        `env:"WHATSAPP_API_URL" yaml:"base_url"`
	Token        string        `env:"WHATSAPP_TOKEN" yaml:"token"`
	Sender       string        `env:"WHATSAPP_SENDER" yaml:"sender"`
	TemplateName string        `env:"WHATSAPP_TEMPLATE" yaml:"template_name" default:"operator_reply"`
	Timeout      time.Duration `env:"WHATSAPP_TIMEOUT" yaml:"timeout" default:"10s"`
}
