package config

import "time"

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey      string        `env:"OPENAI_API_KEY" yaml:"api_key" required:"true"`
	Model       string        `env:"OPENAI_MODEL" yaml:"model" default:"gpt-4o-mini"`
	APIBaseURL  string        `env:"OPENAI_API_URL" yaml:"api_base_url" default:"https://api.openai.com/v1"`
	MaxTokens   int           `env:"OPENAI_MAX_TOKENS" yaml:"max_tokens" default:"250"`
	Temperature float64       `env:"OPENAI_TEMPERATURE" yaml:"temperature" default:"0.3"`
	MaxRetries  int           `env:"OPENAI_MAX_RETRIES" yaml:"max_retries" default:"3"`
	Timeout     time.Duration `env:"OPENAI_TIMEOUT" yaml:"timeout" default:"30s"`
}
