package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/CyberRaas/WealthWise-sub002/internal/amqp"
	"github.com/CyberRaas/WealthWise-sub002/internal/config"
	applog "github.com/CyberRaas/WealthWise-sub002/internal/log"
	"github.com/CyberRaas/WealthWise-sub002/internal/storage"
	"github.com/CyberRaas/WealthWise-sub002/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting wealthwise-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notification worker")
		os.Exit(1)
	}

	var (
		store storage.Store
		err   error
	)
	switch cfg.DataBackend {
	case "sqlite":
		store, err = storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize sqlite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
	default:
		// The worker needs the same data the API writes; a private memory
		// store only makes sense in tests.
		logger.Warn("Using memory backend - the worker will not see API data")
		store = storage.NewMemoryStore()
	}
	defer store.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifyWorker := worker.NewNotifyWorker(store, nil)

	logger.Info("Consuming settlement events", "queue", cfg.AMQPQueue)
	if err := notifyWorker.Run(ctx, amqpClient); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
