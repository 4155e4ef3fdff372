package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/lucinedinatale/chatbot-backend/internal/config"
	"github.com/lucinedinatale/chatbot-backend/internal/server"
	pkgconfig "github.com/lucinedinatale/chatbot-backend/pkg/config"
	"github.com/lucinedinatale/chatbot-backend/pkg/logger"
)

func main() {
	configFile := flag.String("config", "", "optional YAML config file, env vars take precedence")
	flag.Parse()

	// .env is a local dev convenience; absence is not an error
	_ = godotenv.Load()

	var cfg config.AppConfig
	if err := pkgconfig.GetConfig(&cfg, *configFile, false); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(logger.Config{
		Level:   cfg.GetLogLevel(),
		Format:  cfg.Logging.LogFormat,
		Service: cfg.ServiceName,
	})
	cfg.LogConfig(log)

	srv, err := server.New(context.Background(), &cfg, log)
	if err != nil {
		log.Error("Failed to initialize server", logger.ErrorField(err))
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		log.Error("Server exited with error", logger.ErrorField(err))
		os.Exit(1)
	}
}
