package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"tuition_tracker_echo/internal/models"
)

const (
	TransportTwilio = "twilio"
	TransportWaha   = "waha"
	TransportLog    = "log"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DatabaseURL string

	// Redis
	RedisURL      string
	StatsCacheTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	FirebaseCredentialsPath string
	AuthDisabled            bool

	// Messaging transport
	NotifyTransport  string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	WahaBaseURL      string
	WahaAPIKey       string
	WahaSession      string

	// Reminders
	ReminderSchedule    string
	ReminderConcurrency int
	WorkerInterval      time.Duration
	StudioName          string
	CurrencySymbol      string

	// Logging
	LogLevel  string
	LogFormat string
}

const DefaultReminderSchedule = "FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0"

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		StatsCacheTTL: getEnvDuration("STATS_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tuition"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reminder_tasks"),

		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase-service-account.json"),
		AuthDisabled:            getEnvBool("AUTH_DISABLED", false),

		NotifyTransport:  strings.ToLower(getEnv("NOTIFY_TRANSPORT", TransportTwilio)),
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		WahaBaseURL:      getEnv("WAHA_BASE_URL", "http://waha:3000"),
		WahaAPIKey:       getEnv("WAHA_API_KEY", ""),
		WahaSession:      getEnv("WAHA_SESSION", "default"),

		ReminderSchedule:    getEnv("REMINDER_SCHEDULE", DefaultReminderSchedule),
		ReminderConcurrency: getEnvInt("REMINDER_CONCURRENCY", 1),
		WorkerInterval:      getEnvDuration("WORKER_INTERVAL", time.Minute),
		StudioName:          getEnv("STUDIO_NAME", "K2B Dancing Studio"),
		CurrencySymbol:      getEnv("CURRENCY_SYMBOL", "$"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DatabaseURL == "" {
		errors = append(errors, "DATABASE_URL is required")
	}

	if c.RedisURL != "" {
		if parsedURL, err := url.Parse(c.RedisURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Redis URL '%s': %v", c.RedisURL, err))
		} else if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
			errors = append(errors, fmt.Sprintf("invalid Redis URL scheme '%s': must be 'redis' or 'rediss'", parsedURL.Scheme))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	now := time.Now()
	if _, err := models.NextOccurrence(c.ReminderSchedule, now, now, false); err != nil {
		errors = append(errors, fmt.Sprintf("invalid reminder schedule: %v", err))
	}

	if c.ReminderConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid reminder concurrency %d: must be at least 1", c.ReminderConcurrency))
	} else if c.ReminderConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid reminder concurrency %d: must be at most 32", c.ReminderConcurrency))
	}

	if c.WorkerInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid worker interval %v: must be at least 1 second", c.WorkerInterval))
	} else if c.WorkerInterval > time.Hour {
		errors = append(errors, fmt.Sprintf("invalid worker interval %v: must be at most 1 hour", c.WorkerInterval))
	}

	if c.StatsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid stats cache TTL %v: must not be negative", c.StatsCacheTTL))
	}

	if strings.TrimSpace(c.StudioName) == "" {
		errors = append(errors, "STUDIO_NAME cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateTransport checks the messaging transport settings. Only processes that
// send reminders need them, so it is separate from Validate.
func (c *Config) ValidateTransport() error {
	var errors []string

	switch c.NotifyTransport {
	case TransportTwilio:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioFromNumber == "" {
			errors = append(errors, "TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required for the twilio transport")
		}
	case TransportWaha:
		if c.WahaBaseURL == "" {
			errors = append(errors, "WAHA_BASE_URL is required for the waha transport")
		}
	case TransportLog:
	default:
		errors = append(errors, fmt.Sprintf("invalid notify transport '%s': must be one of %v",
			c.NotifyTransport, []string{TransportTwilio, TransportWaha, TransportLog}))
	}

	if len(errors) > 0 {
		return fmt.Errorf("transport configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
