package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tuition_tracker_echo/internal/amqp"
	"tuition_tracker_echo/internal/config"
	applog "tuition_tracker_echo/internal/log"
	"tuition_tracker_echo/internal/reminders"
	"tuition_tracker_echo/internal/services"
	"tuition_tracker_echo/internal/storage"
	"tuition_tracker_echo/internal/tasks"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	logger.Info("Starting worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	sender, err := services.NewSender(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize messaging transport", "error", err)
		os.Exit(1)
	}

	// Initialize Database
	db, err := services.InitDB(cfg.DatabaseURL, applog.GormLevel(cfg.LogLevel))
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := services.AutoMigrate(db); err != nil {
		logger.Error("Failed to run database migrations", "error", err)
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

	// Initialize Task Registry
	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, service)
	runner := tasks.NewRunner(db, registry, logger)

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	task, err := tasks.EnsureRecurringTask(ctx, db, tasks.ScheduledRemindersTask.TaskID(), cfg.ReminderSchedule, time.Now())
	if err != nil {
		logger.Error("Failed to register reminder schedule", "error", err)
		os.Exit(1)
	}
	logger.Info("Reminder schedule registered",
		applog.FieldTaskID, task.ID,
		"rule", cfg.ReminderSchedule,
		"next_due", task.Due)

	// Wakeups from the API run an enqueued task without waiting for the ticker
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on the ticker only", "error", err)
		} else {
			defer amqpClient.Close()
			go func() {
				err := amqpClient.ConsumeTaskWakeups(ctx, func(ctx context.Context, msg *amqp.TaskWakeupMessage) error {
					_, err := runner.RunTask(ctx, msg.TaskID)
					return err
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Message consumption failed", "error", err)
				}
			}()
		}
	}

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutting down worker", "signal", sig.String())
		cancel()
	}()

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	// Run once at startup so a task that came due while the worker was down
	// does not wait a full interval.
	processDue(ctx, runner, logger)

	for {
		select {
		case <-ticker.C:
			processDue(ctx, runner, logger)
		case <-ctx.Done():
			return
		}
	}
}

func processDue(ctx context.Context, runner *tasks.Runner, logger *slog.Logger) {
	ran, err := runner.ProcessDue(ctx, time.Now())
	if err != nil {
		logger.Error("Processing due tasks failed", "error", err)
		return
	}
	if ran > 0 {
		logger.Info("Processed due tasks", applog.FieldCount, ran)
	}
}
