// Package monitoring assembles the health checks exposed on the probe
// endpoints.
package monitoring

import (
	"context"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/health"
	"github.com/lucinedinatale/chatbot-backend/pkg/health/checkers"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

// NewHealthChecker builds the service health checker. Liveness only proves
// the process responds; readiness also probes the shop and ticketing APIs
// so a broken upstream drains traffic before visitors notice.
func NewHealthChecker(cfg *config.AppConfig, log logger.Logger) *health.HealthChecker {
	h := health.New(
		health.WithTimeout(cfg.Monitoring.HealthCheckTimeout),
		health.WithFailureThreshold(cfg.Monitoring.FailureThreshold),
		health.WithLogger(log),
	)

	h.AddLivenessCheck(health.NewCheckFunc("process", func(ctx context.Context) error {
		return nil
	}))

	if cfg.Cart.BaseURL != "" {
		h.AddReadinessCheck(checkers.NewHTTPChecker(cfg.Cart.BaseURL, "cart-api"))
	}
	if cfg.Tickets.BaseURL != "" {
		h.AddReadinessCheck(checkers.NewHTTPChecker(cfg.Tickets.BaseURL, "tickets-api"))
	}

	return h
}
