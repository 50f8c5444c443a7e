package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tuition_tracker_echo/internal/models"
)

var testFormat = MessageFormat{Organization: "K2B Dancing Studio", CurrencySymbol: "$"}

func TestDispatcher_Dispatch(t *testing.T) {
	now := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)

	t.Run("inactive student is skipped silently", func(t *testing.T) {
		store := newMemStore()
		sender := &recordingSender{}
		record := unpaidRecord(1, "Ava", "4165551234", models.MonthMAR, 2024)
		record.Student.Status = models.StudentStatusInactive

		outcome, err := NewDispatcher(store, sender, testFormat, nil).Dispatch(context.Background(), record, models.NotificationTypeScheduled, now)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)
		assert.Empty(t, store.logs)
		assert.Empty(t, sender.sent)
	})

	t.Run("missing student is skipped", func(t *testing.T) {
		store := newMemStore()
		record := unpaidRecord(1, "Ava", "4165551234", models.MonthMAR, 2024)
		record.Student = nil

		outcome, err := NewDispatcher(store, &recordingSender{}, testFormat, nil).Dispatch(context.Background(), record, models.NotificationTypeScheduled, now)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSkipped, outcome)
		assert.Empty(t, store.logs)
	})

	t.Run("invalid phone logs a failure without sending", func(t *testing.T) {
		store := newMemStore()
		sender := &recordingSender{}
		record := unpaidRecord(2, "Ben", "123", models.MonthMAR, 2024)

		outcome, err := NewDispatcher(store, sender, testFormat, nil).Dispatch(context.Background(), record, models.NotificationTypeScheduled, now)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, outcome)
		assert.Empty(t, sender.sent)

		logs := store.logsFor(2)
		require.Len(t, logs, 1)
		assert.False(t, logs[0].Success)
		assert.Equal(t, "invalid phone number", logs[0].ErrorMessage)
		assert.Equal(t, models.NotificationTypeScheduled, logs[0].Type)
		assert.NotContains(t, store.reminded, uint(2))
	})

	t.Run("successful send logs and stamps the record", func(t *testing.T) {
		store := newMemStore()
		sender := &recordingSender{}
		record := unpaidRecord(3, "Cleo", "4165551234", models.MonthFEB, 2024)

		outcome, err := NewDispatcher(store, sender, testFormat, nil).Dispatch(context.Background(), record, models.NotificationTypeMonthFallback, now)
		require.NoError(t, err)
		assert.Equal(t, OutcomeSent, outcome)

		require.Len(t, sender.sent, 1)
		assert.Equal(t, "+14165551234", sender.sent[0].To)

		logs := store.logsFor(3)
		require.Len(t, logs, 1)
		assert.True(t, logs[0].Success)
		assert.Empty(t, logs[0].ErrorMessage)
		assert.Equal(t, models.NotificationTypeMonthFallback, logs[0].Type)
		assert.True(t, now.Equal(logs[0].SentAt))
		assert.True(t, now.Equal(store.reminded[3]))
	})

	t.Run("transport failure logs the transport error", func(t *testing.T) {
		store := newMemStore()
		sender := &recordingSender{failFor: map[string]error{"+14165551234": errGatewayDown}}
		record := unpaidRecord(4, "Dev", "416-555-1234", models.MonthMAR, 2024)

		outcome, err := NewDispatcher(store, sender, testFormat, nil).Dispatch(context.Background(), record, models.NotificationTypeScheduled, now)
		require.NoError(t, err)
		assert.Equal(t, OutcomeFailed, outcome)

		logs := store.logsFor(4)
		require.Len(t, logs, 1)
		assert.False(t, logs[0].Success)
		assert.Equal(t, "gateway unavailable", logs[0].ErrorMessage)
		assert.NotContains(t, store.reminded, uint(4))
	})

	t.Run("repeated dispatch appends a fresh log each time", func(t *testing.T) {
		store := newMemStore()
		d := NewDispatcher(store, &recordingSender{}, testFormat, nil)
		record := unpaidRecord(5, "Eli", "4165551234", models.MonthMAR, 2024)

		for i := 0; i < 3; i++ {
			_, err := d.Dispatch(context.Background(), record, models.NotificationTypeScheduled, now.Add(time.Duration(i)*time.Hour))
			require.NoError(t, err)
		}
		assert.Len(t, store.logsFor(5), 3)
		assert.True(t, now.Add(2*time.Hour).Equal(store.reminded[5]))
	})

	t.Run("log write failure is returned", func(t *testing.T) {
		store := newMemStore()
		store.logErr = errors.New("database is locked")
		record := unpaidRecord(6, "Fay", "4165551234", models.MonthMAR, 2024)

		outcome, err := NewDispatcher(store, &recordingSender{}, testFormat, nil).Dispatch(context.Background(), record, models.NotificationTypeScheduled, now)
		assert.Equal(t, OutcomeSent, outcome)
		assert.ErrorContains(t, err, "database is locked")
	})
}

func TestMessageFormat_Body(t *testing.T) {
	record := unpaidRecord(1, "Ava Chen", "4165551234", models.MonthMAR, 2024)

	t.Run("without amount", func(t *testing.T) {
		want := "Dear Parent/Student,\n" +
			"Tuition fees for Ava Chen are due. Kindly settle the payment of the due amount by MAR 2024.\n" +
			"Thank you,\n" +
			"K2B Dancing Studio"
		assert.Equal(t, want, testFormat.Body(record))
	})

	t.Run("with amount", func(t *testing.T) {
		withAmount := record
		withAmount.Amount = decimal.NewNullDecimal(decimal.RequireFromString("120.5"))
		assert.Contains(t, testFormat.Body(withAmount), "the payment of $120.50 by MAR 2024.")
	})
}
