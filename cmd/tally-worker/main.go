package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/activity"
	"tally/internal/backend"
	"tally/internal/config"
	"tally/internal/export/sheets"
	"tally/internal/log"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.Config{Component: log.ComponentWorker})
	log.SetDefault(logger)

	logger.Info("Starting tally-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.GoogleSpreadsheetID == "" {
		logger.Error("Sheets export disabled, nothing to do (set GOOGLE_SPREADSHEET_ID)")
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the export worker")
		os.Exit(1)
	}

	result, err := backend.Open(cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Store cleanup failed", log.FieldError, err)
		}
	}()

	sheetsClient, err := sheets.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	activityClient, err := activity.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP broker", log.FieldError, err)
		os.Exit(1)
	}
	defer activityClient.Close()

	users := storage.NewUserRepository(result.Store, logger)
	ledgers := storage.NewLedgerRepository(result.Store, logger)
	exportWorker := worker.NewExportWorker(users, ledgers, sheetsClient, cfg.ExportBatchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rebuild the sheet once at startup to cover events missed while down.
	if cfg.ExportFullOnStart {
		logger.Info("Performing full export on startup")
		if err := exportWorker.ExportAll(ctx); err != nil {
			logger.Error("Startup export failed", log.FieldError, err)
			// Keep consuming; individual events still flow through.
		}
	}

	// Periodic full export covers events lost between broker and worker.
	ticker := time.NewTicker(cfg.ExportInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := exportWorker.ExportAll(ctx); err != nil {
					logger.Error("Periodic export failed", log.FieldError, err)
				}
			}
		}
	}()

	go func() {
		handler := func(msg *activity.TransactionRecorded) error {
			return exportWorker.HandleActivityEvent(ctx, msg)
		}
		if err := activityClient.ConsumeTransactionRecorded(ctx, handler); err != nil {
			if err != context.Canceled {
				logger.Error("Event consumption failed", log.FieldError, err)
			}
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Shutting down worker...")
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
