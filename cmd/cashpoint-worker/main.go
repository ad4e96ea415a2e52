package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"cashpoint/internal/amqp"
	"cashpoint/internal/config"
	applog "cashpoint/internal/log"
	"cashpoint/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting cashpoint-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	book, err := worker.NewDayBook(cfg.ExportDir)
	if err != nil {
		logger.Error("Failed to initialize day-book", "error", err, "dir", cfg.ExportDir)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The schedule is a safety net: the summary normally rides on the
	// reset event, but a day without a reset still gets closed.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SummarySchedule, book.SummarizeYesterday); err != nil {
		logger.Error("Failed to register summary schedule", "error", err, "schedule", cfg.SummarySchedule)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeLedgerEvents(gctx, book.HandleEvent)
	})

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"export_dir", cfg.ExportDir,
		"summary_schedule", cfg.SummarySchedule)

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
