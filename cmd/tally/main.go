package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/activity"
	"tally/internal/auth"
	"tally/internal/backend"
	"tally/internal/budget"
	"tally/internal/config"
	apphttp "tally/internal/http"
	"tally/internal/log"
	"tally/internal/report"
	"tally/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
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

	users := storage.NewUserRepository(result.Store, logger)
	sessions := storage.NewSessionRepository(result.Store, logger)
	ledgers := storage.NewLedgerRepository(result.Store, logger)
	budgets := storage.NewBudgetRepository(result.Store, logger)

	// Seed the admin account before taking traffic.
	if _, err := users.List(context.Background()); err != nil {
		logger.Error("Failed to seed user directory", log.FieldError, err)
		os.Exit(1)
	}

	// Activity publisher is optional; without a broker the tracker runs
	// standalone.
	var publisher apphttp.ActivityPublisher
	var activityClient *activity.Client
	if cfg.AMQPURL != "" {
		activityClient, err = activity.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect activity pipeline, continuing without it", log.FieldError, err)
		} else {
			publisher = activityClient
			defer activityClient.Close()
			logger.Info("Activity pipeline connected",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Auth:               auth.NewService(users, sessions, ledgers, budgets, logger),
		Tracker:            budget.NewTracker(budgets, logger),
		Reports:            report.NewEngine(ledgers),
		Ledgers:            ledgers,
		Publisher:          publisher,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting tally server", "port", cfg.Port, "kv_backend", cfg.KVBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
