package config

import "time"

// TicketsConfig holds configuration for the external ticketing platform.
type TicketsConfig struct {
	BaseURL string        `env:"TICKETS_API_URL" yaml:"base_url" default:"https://support.lucinedinatale.it/api/tickets"`
	APIKey  string        `env:"TICKETS_API_KEY" yaml:"api_key"`
	Timeout time.Duration `env:"TICKETS_TIMEOUT" yaml:"timeout" default:"8s"`
}

// CartConfig holds configuration for the ticket shop cart endpoint.
type CartConfig struct {
	BaseURL     string        `env:"CART_API_URL" yaml:"base_url" default:"https://lucinedinatale.it/wp-json/lucine/v1/cart"`
	CalendarURL string        `env:"CALENDAR_URL" yaml:"calendar_url" default:"https://lucinedinatale.it/biglietti/"`
	Timeout     time.Duration `env:"CART_TIMEOUT" yaml:"timeout" default:"5s"`
	SeasonYear  int           `env:"SEASON_YEAR" yaml:"season_year" default:"2025"`
}
