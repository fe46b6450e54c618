package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"walletdash/internal/config"
	"walletdash/internal/infrastructure"
	"walletdash/pkg/logger"

	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		fallback := logger.New(logger.Options{Level: "info"})
		fallback.Fatal().Err(err).Msg("config error")
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("walletdash stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("walletdash stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	app, cleanup, err := infrastructure.Bootstrap(ctx, cfg, log)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("nats", cfg.NatsAddr()).
		Str("prefix", cfg.TopicPrefix).
		Str("store", cfg.StoreProvider).
		Msg("walletdash starting")
	return app.Run(ctx)
}
