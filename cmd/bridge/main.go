package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/autoreply/wa-autoreply-bridge/internal/api"
	"github.com/autoreply/wa-autoreply-bridge/internal/conf"
	"github.com/autoreply/wa-autoreply-bridge/internal/data"
	"github.com/autoreply/wa-autoreply-bridge/internal/infra/log"
	"github.com/autoreply/wa-autoreply-bridge/internal/infra/whatsapp"
	"github.com/autoreply/wa-autoreply-bridge/internal/metrics"
	"github.com/autoreply/wa-autoreply-bridge/internal/server"
	"github.com/autoreply/wa-autoreply-bridge/internal/service"
)

func main() {
	// Load .env file
	envErr := godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		bootLogger := log.NewLogger("dev")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := log.NewLogger(cfg.AppEnv)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	persona, err := conf.LoadPersona(cfg.PersonaPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load persona")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	waClient := whatsapp.NewClient(cfg.WhatsApp.BridgeURL, logger)

	// Initialize repository layer
	repos, err := data.NewRepositories(ctx, cfg, waClient, persona, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create repositories")
	}
	logger.Info().Str("path", cfg.Journal.DBPath).Bool("redis", cfg.RedisAddr != "").Msg("repositories ready")

	coordinator := service.NewReplyCoordinator(
		repos.Message,
		repos.Completion,
		repos.Journal,
		repos.Seen,
		cfg.ToReplyConfig(),
		logger,
	)

	var keepAlive *service.KeepAliveJob
	if cfg.KeepAlive.URL != "" {
		keepAlive, err = service.NewKeepAliveJob(cfg.KeepAlive.URL, cfg.KeepAlive.Schedule, nil, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid keep-alive config")
		}
	}

	// Health endpoint and operator API
	apiServer := api.NewServer(coordinator, repos.Journal, waClient, cfg.APIToken, cfg.Port, logger)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error().Err(err).Msg("api server error")
		}
	}()
	logger.Info().Int("port", cfg.Port).Msg("http server started")

	srv := server.NewWhatsAppServer(waClient, coordinator, keepAlive, logger)
	if err := srv.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Str("bridge", cfg.WhatsApp.BridgeURL).Msg("WhatsApp auto-reply bridge started")

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info().Msg("shutting down...")

	srv.Stop()
	coordinator.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api server shutdown")
	}
	if err := repos.Close(); err != nil {
		logger.Error().Err(err).Msg("close repositories")
	}
}
