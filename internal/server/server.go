// Package server wires every component together and runs the HTTP API the
// chat widget and the operator console talk to.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/robfig/cron/v3"

	"github.com/lucinedinatale/chatbot-backend/internal/booking"
	"github.com/lucinedinatale/chatbot-backend/internal/completion"
	appconfig "github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/internal/logsink"
	"github.com/lucinedinatale/chatbot-backend/internal/monitoring"
	"github.com/lucinedinatale/chatbot-backend/internal/notify"
	"github.com/lucinedinatale/chatbot-backend/internal/operators"
	"github.com/lucinedinatale/chatbot-backend/internal/orchestrator"
	"github.com/lucinedinatale/chatbot-backend/internal/ratelimit"
	"github.com/lucinedinatale/chatbot-backend/internal/session"
	"github.com/lucinedinatale/chatbot-backend/internal/ticket"
	"github.com/lucinedinatale/chatbot-backend/pkg/health"
	"github.com/lucinedinatale/chatbot-backend/pkg/httpmiddleware"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
	"github.com/lucinedinatale/chatbot-backend/pkg/metrics"
)

// Server encapsulates all components and lifecycle management.
type Server struct {
	cfg      *appconfig.AppConfig
	log      logger.Logger
	router   chi.Router
	sessions *session.Store
	limiter  *ratelimit.Limiter
	registry *operators.Registry
	orch     *orchestrator.Orchestrator
	sink     *logsink.Sink
	notifier *notify.WhatsAppNotifier
	metrics  *metrics.Metrics
	health   *health.HealthChecker
	cron     *cron.Cron
	cancel   context.CancelFunc
}

// New creates a Server instance with all components initialized.
func New(ctx context.Context, cfg *appconfig.AppConfig, log logger.Logger) (*Server, error) {
	s := &Server{
		cfg: cfg,
		log: log,
	}

	s.sessions = session.NewStore(cfg.Limits.SessionTTL, cfg.Limits.HistoryLimit, log)
	s.limiter = ratelimit.New(cfg.Limits.RateLimitWindow, cfg.Limits.RateLimitMax)
	s.registry = operators.NewRegistry(s.sessions, cfg.Limits.OperatorLiveness, log)
	s.sink = logsink.New(cfg.LogSink, log)
	s.notifier = notify.NewWhatsAppNotifier(cfg.WhatsApp, log)

	completer, err := completion.NewClient(cfg.OpenAI, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion client: %w", err)
	}

	cartClient := booking.NewCartClient(cfg.Cart, log)
	resolver := booking.NewResolver(cartClient, cfg.Cart, log)
	ticketClient := ticket.NewClient(cfg.Tickets, log)

	if cfg.Monitoring.Metrics.EnableHTTPMetrics || cfg.Monitoring.Metrics.ExposeMetrics {
		s.metrics = metrics.NewMetrics(cfg.Monitoring.Metrics.EnableHTTPMetrics, log)
		s.metrics.NewGaugeFunc("sessions_active", "Active chat sessions", func() float64 {
			return float64(s.sessions.Len())
		})
		s.metrics.NewGaugeFunc("sessions_escalated", "Sessions in any escalation stage", func() float64 {
			var n int
			for _, chat := range s.sessions.All() {
				if chat.Escalation != session.EscalationNone {
					n++
				}
			}
			return float64(n)
		})
		s.metrics.NewGaugeFunc("chats_with_operator", "Sessions currently handled by an operator", func() float64 {
			var n int
			for _, chat := range s.sessions.All() {
				if chat.Mode == session.ModeOperatorActive {
					n++
				}
			}
			return float64(n)
		})
		s.metrics.NewGaugeFunc("rate_limit_keys", "Sessions tracked by the rate limiter", func() float64 {
			return float64(s.limiter.Len())
		})
	}

	s.orch = orchestrator.New(
		s.sessions,
		s.limiter,
		s.registry,
		completer,
		resolver,
		ticketClient,
		s.sink,
		s.notifier,
		s.metrics,
		orchestrator.Config{
			MaxMessageLength: cfg.Limits.MaxMessageLength,
			CalendarURL:      cfg.Cart.CalendarURL,
			SupportEmail:     "info@lucinedinatale.it",
		},
		log,
	)

	s.health = monitoring.NewHealthChecker(cfg, log)

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(cfg.Limits.SweepSchedule, func() {
		s.sessions.Sweep()
		s.limiter.Sweep()
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule store sweep: %w", err)
	}

	s.router = s.buildRouter()
	return s, nil
}

// buildRouter assembles middleware and routes.
func (s *Server) buildRouter() chi.Router {
	router := chi.NewRouter()

	mwConfig := httpmiddleware.DefaultConfig()
	mwConfig.Logger = s.log
	mwConfig.EnableLogging = true
	mwConfig.Timeout = s.cfg.RequestTimeout
	corsConfig := httpmiddleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = s.cfg.Security.CORSAllowedOrigins
	mwConfig.CORS = &corsConfig
	httpmiddleware.ApplyToRouter(router, mwConfig)

	if s.metrics != nil {
		router.Use(s.metrics.HTTPMiddleware())
	}

	router.Get("/healthz", s.health.LivenessHandler())
	router.Get("/readyz", s.health.ReadinessHandler())

	router.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Get("/chat/{sessionID}/messages", s.handleChatMessages)

		r.Route("/operators", func(r chi.Router) {
			r.Use(s.operatorAuth)
			r.Get("/", s.handleOperatorList)
			r.Post("/status", s.handleOperatorStatus)
			r.Get("/me", s.handleOperatorMe)
			r.Get("/pending", s.handleOperatorPending)
			r.Post("/take", s.handleOperatorTake)
			r.Post("/message", s.handleOperatorMessage)
			r.Get("/chats", s.handleOperatorChats)
			r.Get("/chats/{sessionID}/messages", s.handleOperatorChatMessages)
			r.Post("/release", s.handleOperatorRelease)
		})
	})

	return router
}

// Run starts the server and blocks until shutdown.
func (s *Server) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	defer cancel()

	s.setupGracefulShutdown()

	if s.metrics != nil && s.cfg.Monitoring.Metrics.ExposeMetrics {
		s.metrics.Listen(s.cfg.Monitoring.Metrics.Port)
	}

	s.cron.Start()

	httpServer := &http.Server{
		Addr:           fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:        s.router,
		ReadTimeout:    s.cfg.HTTP.ReadTimeout(),
		WriteTimeout:   s.cfg.HTTP.WriteTimeout(),
		IdleTimeout:    s.cfg.HTTP.IdleTimeout(),
		MaxHeaderBytes: s.cfg.HTTP.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting HTTP server", logger.IntField("port", s.cfg.HTTP.Port))
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	case <-ctx.Done():
	}

	s.log.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Error("HTTP server shutdown error", logger.ErrorField(err))
	}

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	if s.metrics != nil {
		s.metrics.Stop()
	}

	// flush remaining conversation logs last
	s.sink.Close()

	s.log.Info("Server stopped")
	return nil
}

// setupGracefulShutdown sets up signal handling for graceful shutdown.
func (s *Server) setupGracefulShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		s.log.Info("Received shutdown signal", logger.StringField("signal", sig.String()))

		if s.cancel != nil {
			s.cancel()
		}

		time.AfterFunc(30*time.Second, func() {
			s.log.Warn("Force exiting due to timeout")
			os.Exit(1)
		})
	}()
}
