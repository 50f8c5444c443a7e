package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	applog "tuition_tracker_echo/internal/log"
	"tuition_tracker_echo/internal/models"
)

// Sender delivers one text message to a canonical phone number.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Store is the data access the reminder engine needs.
type Store interface {
	// UnpaidRecords returns not-paid records for the period whose students are
	// eligible, with Student populated. studentIDs narrows the result when given.
	UnpaidRecords(ctx context.Context, period Period, studentIDs ...uint) ([]models.PaymentRecord, error)
	// LogNotification appends entry and, when remindedAt is set, stamps the
	// record's LastReminderAt in the same transaction.
	LogNotification(ctx context.Context, entry *models.NotificationLog, remindedAt *time.Time) error
}

// Outcome is what a single dispatch did.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeSent
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSent:
		return "sent"
	case OutcomeFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Dispatcher sends one reminder for one payment record and records the outcome.
type Dispatcher struct {
	store  Store
	sender Sender
	format MessageFormat
	logger *slog.Logger
}

func NewDispatcher(store Store, sender Sender, format MessageFormat, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		sender: sender,
		format: format,
		logger: applog.Component(logger, "dispatcher"),
	}
}

// Dispatch makes one delivery attempt. Inactive students are skipped without a
// log entry; every other path appends exactly one NotificationLog. The returned
// error is non-nil only when that log could not be written.
func (d *Dispatcher) Dispatch(ctx context.Context, record models.PaymentRecord, kind models.NotificationType, now time.Time) (Outcome, error) {
	if record.Student == nil || !record.Student.IsActive() {
		return OutcomeSkipped, nil
	}

	entry := &models.NotificationLog{
		PaymentRecordID: record.ID,
		SentAt:          now,
		Type:            kind,
	}

	to, err := NormalizePhone(record.Student.ParentContactNumber)
	if err != nil {
		entry.ErrorMessage = err.Error()
		return d.fail(ctx, record, entry)
	}

	if err := d.sender.Send(ctx, to, d.format.Body(record)); err != nil {
		entry.ErrorMessage = err.Error()
		return d.fail(ctx, record, entry)
	}

	entry.Success = true
	remindedAt := now
	if err := d.store.LogNotification(ctx, entry, &remindedAt); err != nil {
		return OutcomeSent, fmt.Errorf("record delivery for payment record %d: %w", record.ID, err)
	}
	return OutcomeSent, nil
}

func (d *Dispatcher) fail(ctx context.Context, record models.PaymentRecord, entry *models.NotificationLog) (Outcome, error) {
	d.logger.WarnContext(ctx, "Reminder not delivered",
		applog.FieldRecordID, record.ID,
		applog.FieldStudentID, record.StudentID,
		applog.FieldNotificationType, entry.Type,
		applog.FieldError, entry.ErrorMessage)

	if err := d.store.LogNotification(ctx, entry, nil); err != nil {
		return OutcomeFailed, fmt.Errorf("record failed delivery for payment record %d: %w", record.ID, err)
	}
	return OutcomeFailed, nil
}
