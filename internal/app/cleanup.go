package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/crier/internal/cache"
	"horse.fit/crier/internal/cli"
	"horse.fit/crier/internal/config"
	"horse.fit/crier/internal/dedup"
	"horse.fit/crier/internal/logging"
)

func runCleanup(args []string) int {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Overall command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	store, err := cache.NewRedis(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("cache client init failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to cache: %v\n", err)
		return 1
	}
	defer store.Close()

	service := dedup.NewService(store, logger, dedup.Options{ContentTTL: cfg.ContentTTL()})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := service.Cleanup(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("cleanup failed")
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		return 1
	}

	fmt.Printf("cleanup scanned=%d removed=%d\n", result.Scanned, result.Removed)
	return 0
}
