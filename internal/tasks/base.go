package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tuition_tracker_echo/internal/models"
)

// BuildScheduledTask is a helper to build ScheduledTask records generically
func BuildScheduledTask(taskName string, args interface{}, due time.Time, recurringInterval *string, taskType models.ScheduledTaskType, maxAttempt int) (*models.ScheduledTask, error) {
	mapArgs := map[string]interface{}{}
	if args != nil {
		argsBytes, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal args: %w", err)
		}
		if err := json.Unmarshal(argsBytes, &mapArgs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal into map: %w", err)
		}
	}

	if maxAttempt < 1 {
		maxAttempt = 1
	}

	return &models.ScheduledTask{
		TaskName:          taskName,
		Arguments:         mapArgs,
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}, nil
}

// EnsureRecurringTask makes sure exactly one recurring task with the given name
// exists and follows rule. A changed rule re-arms the task from now.
func EnsureRecurringTask(ctx context.Context, db *gorm.DB, taskName, rule string, now time.Time) (*models.ScheduledTask, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	due, err := models.NextOccurrence(rule, midnight, now, true)
	if err != nil {
		return nil, err
	}
	if due.IsZero() {
		return nil, fmt.Errorf("rule %q has no occurrence after %s", rule, now.Format(time.RFC3339))
	}

	var task models.ScheduledTask
	err = db.WithContext(ctx).
		Where("task_name = ? AND task_type = ?", taskName, models.ScheduledTaskTypeRecurring).
		First(&task).Error

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		created, err := BuildScheduledTask(taskName, nil, due, &rule, models.ScheduledTaskTypeRecurring, 1)
		if err != nil {
			return nil, err
		}
		if err := db.WithContext(ctx).Create(created).Error; err != nil {
			return nil, fmt.Errorf("create recurring task %s: %w", taskName, err)
		}
		return created, nil
	case err != nil:
		return nil, fmt.Errorf("find recurring task %s: %w", taskName, err)
	}

	updates := map[string]interface{}{}
	if task.RecurringInterval == nil || *task.RecurringInterval != rule {
		updates["recurring_interval"] = rule
		updates["due"] = due
		updates["status"] = models.ScheduledTaskStatusActive
		updates["attempts"] = 0
	} else if task.Status != models.ScheduledTaskStatusActive && task.Status != models.ScheduledTaskStatusDisabled {
		// A worker that died mid-run leaves the task running; re-arm it.
		updates["due"] = due
		updates["status"] = models.ScheduledTaskStatusActive
		updates["attempts"] = 0
	}

	if len(updates) > 0 {
		if err := db.WithContext(ctx).Model(&task).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update recurring task %s: %w", taskName, err)
		}
		if err := db.WithContext(ctx).First(&task, task.ID).Error; err != nil {
			return nil, err
		}
	}
	return &task, nil
}
