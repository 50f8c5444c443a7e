package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	applog "tuition_tracker_echo/internal/log"
	"tuition_tracker_echo/internal/models"
)

const (
	historyStatusSuccess         = "success"
	historyStatusFailure         = "failure"
	historyStatusHandlerNotFound = "handler_not_found"

	defaultRetryDelay = 5 * time.Minute
)

// Runner picks due scheduled tasks and executes their handlers.
type Runner struct {
	db         *gorm.DB
	registry   *Registry
	clock      func() time.Time
	retryDelay time.Duration
	logger     *slog.Logger
}

func NewRunner(db *gorm.DB, registry *Registry, logger *slog.Logger) *Runner {
	return &Runner{
		db:         db,
		registry:   registry,
		clock:      time.Now,
		retryDelay: defaultRetryDelay,
		logger:     applog.Component(logger, "worker"),
	}
}

// ProcessDue runs every active task whose due time has passed. It returns the
// number of tasks this runner executed.
func (r *Runner) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	var pending []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, now).
		Order("due").
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("fetch pending tasks: %w", err)
	}

	if len(pending) == 0 {
		r.logger.DebugContext(ctx, "No pending tasks found")
		return 0, nil
	}

	r.logger.InfoContext(ctx, "Found pending tasks", applog.FieldCount, len(pending))

	executed := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			return executed, ctx.Err()
		}
		ran, err := r.execute(ctx, task)
		if err != nil {
			r.logger.ErrorContext(ctx, "Task bookkeeping failed",
				applog.FieldTaskID, task.ID, applog.FieldError, err)
			continue
		}
		if ran {
			executed++
		}
	}
	return executed, nil
}

// RunTask executes one task by id if it is active and due.
func (r *Runner) RunTask(ctx context.Context, id uint) (bool, error) {
	var task models.ScheduledTask
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load task %d: %w", id, err)
	}
	if task.Status != models.ScheduledTaskStatusActive || task.Due.After(r.clock()) {
		return false, nil
	}
	return r.execute(ctx, task)
}

// claim moves the task from active to running. Only one caller wins.
func (r *Runner) claim(ctx context.Context, task models.ScheduledTask) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ScheduledTask{}).
		Where("id = ? AND status = ?", task.ID, models.ScheduledTaskStatusActive).
		Update("status", models.ScheduledTaskStatusRunning)
	if res.Error != nil {
		return false, fmt.Errorf("claim task %d: %w", task.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *Runner) execute(ctx context.Context, task models.ScheduledTask) (bool, error) {
	claimed, err := r.claim(ctx, task)
	if err != nil || !claimed {
		return false, err
	}

	logger := r.logger.With(applog.FieldTaskID, task.ID, applog.FieldTaskName, task.TaskName)
	attempt := task.Attempts + 1
	startTime := r.clock()

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		logger.ErrorContext(ctx, "Task handler not found, marking as failure")
		history := models.ScheduledTaskHistory{
			ScheduledTaskID: task.ID,
			TaskName:        task.TaskName,
			RunAt:           startTime,
			Status:          historyStatusHandlerNotFound,
			AttemptNumber:   attempt,
			Arguments:       task.Arguments,
			Result:          map[string]interface{}{"error": "Handler not found"},
		}
		return true, r.finish(ctx, task, &history, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": startTime,
			"attempts": attempt,
		})
	}

	logger.InfoContext(ctx, "Processing task", "attempt", attempt)
	result, runErr := handler(ctx, task, startTime)
	runtime := r.clock().Sub(startTime)

	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           startTime,
		Runtime:         int(runtime.Milliseconds()),
		Status:          historyStatusSuccess,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if runErr != nil {
		history.Status = historyStatusFailure
		if history.Result == nil {
			history.Result = map[string]interface{}{}
		}
		history.Result["error"] = runErr.Error()
		logger.ErrorContext(ctx, "Task failed", applog.FieldError, runErr, applog.FieldDuration, runtime)
	} else {
		logger.InfoContext(ctx, "Task completed", applog.FieldDuration, runtime)
	}

	return true, r.finish(ctx, task, &history, r.nextState(task, runErr, attempt, startTime))
}

// nextState decides where the task goes after a run. Failed runs retry until
// MaxAttempt; recurring tasks then move on to their next occurrence either way.
func (r *Runner) nextState(task models.ScheduledTask, runErr error, attempt int, ranAt time.Time) map[string]interface{} {
	updates := map[string]interface{}{"last_run": ranAt}

	if runErr != nil && attempt < task.MaxAttempt {
		updates["status"] = models.ScheduledTaskStatusActive
		updates["attempts"] = attempt
		updates["due"] = ranAt.Add(r.retryDelay)
		return updates
	}

	updates["attempts"] = 0
	switch task.TaskType {
	case models.ScheduledTaskTypeRecurring:
		next := task.NextDue(ranAt)
		if next.After(task.Due) {
			updates["status"] = models.ScheduledTaskStatusActive
			updates["due"] = next
		} else {
			updates["status"] = models.ScheduledTaskStatusDone
		}
	default:
		if runErr != nil {
			updates["status"] = models.ScheduledTaskStatusFailure
			updates["attempts"] = attempt
		} else {
			updates["status"] = models.ScheduledTaskStatusDone
		}
	}
	return updates
}

func (r *Runner) finish(ctx context.Context, task models.ScheduledTask, history *models.ScheduledTaskHistory, updates map[string]interface{}) error {
	// Bookkeeping must land even if the run was cancelled.
	ctx = context.WithoutCancel(ctx)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(history).Error; err != nil {
			return fmt.Errorf("create task history: %w", err)
		}
		if err := tx.Model(&models.ScheduledTask{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update task %d: %w", task.ID, err)
		}
		return nil
	})
}
