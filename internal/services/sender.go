package services

import (
	"context"
	"fmt"
	"log/slog"

	"tuition_tracker_echo/internal/config"
	"tuition_tracker_echo/internal/reminders"
)

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, to, body string) error {
	s.logger.InfoContext(ctx, "Reminder message", "to", to, "body", body)
	return nil
}

var (
	_ reminders.Sender = (*LogSender)(nil)
	_ reminders.Sender = (*TwilioService)(nil)
	_ reminders.Sender = (*WahaService)(nil)
)

// NewSender builds the transport selected by NOTIFY_TRANSPORT.
func NewSender(cfg *config.Config, logger *slog.Logger) (reminders.Sender, error) {
	if err := cfg.ValidateTransport(); err != nil {
		return nil, err
	}

	switch cfg.NotifyTransport {
	case config.TransportTwilio:
		return NewTwilioService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber), nil
	case config.TransportWaha:
		return NewWahaService(cfg.WahaBaseURL, cfg.WahaAPIKey, cfg.WahaSession), nil
	case config.TransportLog:
		return NewLogSender(logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.NotifyTransport)
	}
}
