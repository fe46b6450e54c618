package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"walletdash/internal/config"
	"walletdash/internal/repository"
	"walletdash/pkg/logger"
)

func main() {
	log := logger.New(logger.Options{Level: "info", Pretty: true})

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	if cfg.StoreProvider != config.StorePostgres {
		log.Fatal().Str("store", cfg.StoreProvider).Msg("migrations only apply to the postgres selection store")
	}

	flag.Parse()
	args := flag.Args()

	if len(args) < 1 {
		fmt.Println("Error: migration command is required")
		fmt.Println("Usage: go run ./cmd/migrate [command]")
		fmt.Println("Commands: up, down, status, redo")
		os.Exit(1)
	}

	command := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	log.Info().Str("command", command).Msg("starting migration")

	if err := repository.RunMigrations(ctx, cfg.DSN(), command); err != nil {
		log.Fatal().Err(err).Msg("migration error")
	}

	log.Info().Msg("migration finished successfully")
}
