package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	applog "tuition_tracker_echo/internal/log"
	"tuition_tracker_echo/internal/models"
)

// BucketResult summarizes one sweep over one billing month.
type BucketResult struct {
	Period    Period                  `json:"period"`
	Type      models.NotificationType `json:"type"`
	Ran       bool                    `json:"ran"`
	Processed int                     `json:"processed"`
	Sent      int                     `json:"sent"`
	Failed    int                     `json:"failed"`
	Skipped   int                     `json:"skipped"`
	Error     string                  `json:"error,omitempty"`
}

// RunResult covers the current-month and previous-month sweeps of one run.
type RunResult struct {
	RunID    string       `json:"run_id"`
	Current  BucketResult `json:"current"`
	Previous BucketResult `json:"previous"`
}

// Map flattens the result for task history storage.
func (r RunResult) Map() map[string]interface{} {
	bucket := func(b BucketResult) map[string]interface{} {
		m := map[string]interface{}{
			"period":    b.Period.String(),
			"type":      string(b.Type),
			"ran":       b.Ran,
			"processed": b.Processed,
			"sent":      b.Sent,
			"failed":    b.Failed,
			"skipped":   b.Skipped,
		}
		if b.Error != "" {
			m["error"] = b.Error
		}
		return m
	}
	return map[string]interface{}{
		"run_id":   r.RunID,
		"current":  bucket(r.Current),
		"previous": bucket(r.Previous),
	}
}

type Options struct {
	// Concurrency bounds parallel sends within one sweep. 1 dispatches in order.
	Concurrency int
	Clock       func() time.Time
	Logger      *slog.Logger
}

// Service runs reminder sweeps over unpaid payment records.
type Service struct {
	store       Store
	dispatcher  *Dispatcher
	concurrency int
	clock       func() time.Time
	logger      *slog.Logger
}

func NewService(store Store, dispatcher *Dispatcher, opts Options) *Service {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		store:       store,
		dispatcher:  dispatcher,
		concurrency: opts.Concurrency,
		clock:       opts.Clock,
		logger:      applog.Component(opts.Logger, "reminders"),
	}
}

// RunScheduled is the daily pass. Each sweep only runs on its reminder days.
func (s *Service) RunScheduled(ctx context.Context, now time.Time) (RunResult, error) {
	return s.run(ctx, now, IsCurrentMonthReminderDay(now), IsPrevMonthReminderDay(now))
}

// RunAll sweeps both months regardless of the day of month.
func (s *Service) RunAll(ctx context.Context, now time.Time) (RunResult, error) {
	return s.run(ctx, now, true, true)
}

// RunNow is RunAll at the current clock time.
func (s *Service) RunNow(ctx context.Context) (RunResult, error) {
	return s.RunAll(ctx, s.clock())
}

func (s *Service) run(ctx context.Context, now time.Time, current, previous bool) (RunResult, error) {
	result := RunResult{
		RunID: uuid.NewString(),
		Current: BucketResult{
			Period: CurrentPeriod(now),
			Type:   models.NotificationTypeScheduled,
		},
		Previous: BucketResult{
			Period: PreviousPeriod(now),
			Type:   models.NotificationTypeMonthFallback,
		},
	}
	logger := s.logger.With(applog.FieldRunID, result.RunID)

	var errs []error
	if current {
		if err := s.sweep(ctx, logger, &result.Current, now); err != nil {
			errs = append(errs, err)
		}
	}
	if previous {
		if err := s.sweep(ctx, logger, &result.Previous, now); err != nil {
			errs = append(errs, err)
		}
	}
	return result, errors.Join(errs...)
}

func (s *Service) sweep(ctx context.Context, logger *slog.Logger, bucket *BucketResult, now time.Time) error {
	bucket.Ran = true
	logger = logger.With(
		applog.FieldNotificationType, bucket.Type,
		applog.FieldMonth, bucket.Period.Month,
		applog.FieldYear, bucket.Period.Year)

	records, err := s.store.UnpaidRecords(ctx, bucket.Period)
	if err != nil {
		bucket.Error = err.Error()
		logger.ErrorContext(ctx, "Reminder sweep aborted: could not load unpaid records", applog.FieldError, err)
		return fmt.Errorf("load unpaid records for %s: %w", bucket.Period, err)
	}

	logger.InfoContext(ctx, "Reminder sweep started", applog.FieldCount, len(records))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, record := range records {
		if ctx.Err() != nil {
			break
		}
		record := record
		g.Go(func() error {
			outcome, err := s.dispatcher.Dispatch(ctx, record, bucket.Type, now)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to record reminder outcome",
					applog.FieldRecordID, record.ID, applog.FieldError, err)
			}

			mu.Lock()
			defer mu.Unlock()
			bucket.Processed++
			switch outcome {
			case OutcomeSent:
				bucket.Sent++
			case OutcomeFailed:
				bucket.Failed++
			default:
				bucket.Skipped++
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.InfoContext(ctx, "Reminder sweep finished",
		"processed", bucket.Processed,
		"sent", bucket.Sent,
		"failed", bucket.Failed,
		"skipped", bucket.Skipped)

	return ctx.Err()
}
