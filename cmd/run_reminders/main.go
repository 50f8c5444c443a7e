package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tuition_tracker_echo/internal/config"
	applog "tuition_tracker_echo/internal/log"
	"tuition_tracker_echo/internal/reminders"
	"tuition_tracker_echo/internal/services"
	"tuition_tracker_echo/internal/storage"
)

// run_reminders sweeps both the current and previous month right now,
// without the reminder-day gate, and prints what happened.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	sender, err := services.NewSender(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize messaging transport", "error", err)
		os.Exit(1)
	}

	db, err := services.InitDB(cfg.DatabaseURL, applog.GormLevel(cfg.LogLevel))
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	repo := storage.NewRepository(db)
	dispatcher := reminders.NewDispatcher(repo, sender, reminders.MessageFormat{
		Organization:   cfg.StudioName,
		CurrencySymbol: cfg.CurrencySymbol,
	}, logger)
	service := reminders.NewService(repo, dispatcher, reminders.Options{
		Concurrency: cfg.ReminderConcurrency,
		Logger:      logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := service.RunNow(ctx)
	for _, bucket := range []reminders.BucketResult{result.Current, result.Previous} {
		fmt.Printf("%-13s %s: processed=%d sent=%d failed=%d skipped=%d\n",
			bucket.Type, bucket.Period, bucket.Processed, bucket.Sent, bucket.Failed, bucket.Skipped)
		if bucket.Error != "" {
			fmt.Printf("  error: %s\n", bucket.Error)
		}
	}
	if err != nil {
		logger.Error("Reminder run finished with errors", applog.FieldRunID, result.RunID, "error", err)
		os.Exit(1)
	}
}
