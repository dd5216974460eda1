package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pitchup/cmd/consumers/jobs"
	"pitchup/internal/config"
	"pitchup/internal/consumers"
	"pitchup/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "error", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()
	log.Info("Starting consumers service...")

	// Override NATS client ID for consumers
	cfg.NATS.ClientID = "pitchup-consumers"

	// Create and start consumers
	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	// Start consuming messages
	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	reclaimJob := jobs.NewReclaimJob(consumerService.Slots(), cfg.Jobs.ReclaimInterval)
	seedJob := jobs.NewSeedJob(consumerService.Slots(), cfg.Jobs.SeedInterval, cfg.Jobs.SeedDays, cfg.Jobs.SeedTimes)
	reclaimJob.Start(ctx)
	seedJob.Start(ctx)

	log.Info("Consumers service started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down consumers service...")

	stop()
	reclaimJob.Stop()
	seedJob.Stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	log.Info("Consumers service stopped")
}
