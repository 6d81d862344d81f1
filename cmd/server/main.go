package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/thereayou/direct-chat/internal/config"
	"github.com/thereayou/direct-chat/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	if err := logger.Init(cfg.AppEnv, cfg.LogLevel); err != nil {
		logger.Warn().Err(err).Msg("ignoring LOG_LEVEL")
	}
	logger.Info().Str("environment", cfg.AppEnv).Msg("starting direct-chat")

	srv, err := NewServer(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize server")
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
	}
}
