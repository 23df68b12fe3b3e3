package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/autoreply/wa-autoreply-bridge/internal/conf"
	"github.com/autoreply/wa-autoreply-bridge/internal/infra/log"
	"github.com/autoreply/wa-autoreply-bridge/internal/mcp"
)

const version = "v1.0.0"

// Operator tools over stdio. Stdout carries the MCP protocol, so logs go to stderr.
func main() {
	_ = godotenv.Load()

	cfg, err := conf.LoadFromEnv()
	if err != nil {
		bootLogger := log.NewStderrLogger("dev")
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := log.NewStderrLogger(cfg.AppEnv)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server := mcp.NewServer(mcp.NewClient(cfg.BridgeAPIURL, cfg.APIToken), version)

	logger.Info().Str("bridge_api", cfg.BridgeAPIURL).Msg("autoreply MCP server starting")
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Msg("MCP server error")
	}
}
