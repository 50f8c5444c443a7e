package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tuition_tracker_echo/internal/config"
	applog "tuition_tracker_echo/internal/log"
	"tuition_tracker_echo/internal/reminders"
	"tuition_tracker_echo/internal/services"
)

func main() {
	phone := flag.String("phone", "", "Phone number (e.g. 4165551234 or +14165551234)")
	msg := flag.String("msg", "Test message from the tuition tracker", "Message body")
	flag.Parse()

	// Load envs
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if *phone == "" {
		logger.Error("Please provide a phone number using -phone flag")
		os.Exit(2)
	}

	to, err := reminders.NormalizePhone(*phone)
	if err != nil {
		logger.Error("Invalid phone number", "phone", *phone, "error", err)
		os.Exit(2)
	}

	sender, err := services.NewSender(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize messaging transport", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("Sending message", "transport", cfg.NotifyTransport, "to", to)
	if err := sender.Send(ctx, to, *msg); err != nil {
		logger.Error("Failed to send message", "error", err)
		os.Exit(1)
	}

	logger.Info("Message sent successfully")
}
