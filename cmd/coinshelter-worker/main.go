package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"coinshelter/internal/amqp"
	"coinshelter/internal/cli"
	"coinshelter/internal/export"
	"coinshelter/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting coinshelter-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, nothing to export")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Record store to resolve change events into full records
	result := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	sheets, err := export.NewSheetsFromEnv(ctx)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	worker := export.NewWorker(result.Store, sheets, cfg.ExportBatchSize, cfg.ExportInterval,
		logger.WithComponent(log.ComponentExport))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqp.ConsumeWithReconnect(gctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			func(msg *amqp.CoinChangeMessage) error {
				return worker.HandleChange(gctx, msg)
			})
	})

	g.Go(func() error {
		return worker.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
