package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tuition_tracker_echo/internal/amqp"
	"tuition_tracker_echo/internal/config"
	"tuition_tracker_echo/internal/handlers"
	applog "tuition_tracker_echo/internal/log"
	authMiddleware "tuition_tracker_echo/internal/middleware"
	"tuition_tracker_echo/internal/services"
	"tuition_tracker_echo/internal/storage"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
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

	// Redis is optional; a nil cache always misses
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, stats caching disabled", "error", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	// Initialize Firebase
	var verifier authMiddleware.TokenVerifier
	if !cfg.AuthDisabled {
		authClient, err := services.InitFirebase(context.Background(), cfg.FirebaseCredentialsPath)
		if err != nil {
			logger.Warn("Firebase initialization failed, API requests will be rejected", "error", err)
		} else {
			verifier = authClient
		}
	}

	// AMQP is optional; without it the worker picks tasks up on its next tick
	var publisher handlers.WakeupPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, immediate runs wait for the worker tick", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewValidator()
	e.HTTPErrorHandler = authMiddleware.ErrorHandler

	// Middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			logger.InfoContext(c.Request().Context(), "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	repo := storage.NewRepository(db)
	classHandler := handlers.NewClassHandler(repo)
	studentHandler := handlers.NewStudentHandler(repo, cache, cfg.StatsCacheTTL)
	reminderHandler := handlers.NewReminderHandler(db, repo, publisher)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Protected routes
	api := e.Group("/api")
	if cfg.AuthDisabled {
		logger.Warn("Authentication disabled, every request runs as the dev user")
		api.Use(authMiddleware.DevAuth())
	} else {
		api.Use(authMiddleware.RequireAuth(verifier))
	}
	classHandler.Register(api)
	studentHandler.Register(api)
	reminderHandler.Register(api)

	// Start server
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
}
