package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"smartdate/internal/app"
	"smartdate/internal/config"
	"smartdate/internal/logger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := logger.NewLogger(cfg)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subscriber, err := app.NewSubscriber(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to start subscriber: %v", err)
	}

	runErr := subscriber.Run(ctx)
	if err := subscriber.Close(); err != nil {
		logger.Warning("Shutdown incomplete: %v", err)
	}
	if runErr != nil {
		logger.Fatal("Subscriber stopped: %v", runErr)
	}
}
