package tasks

import (
	"context"
	"time"

	"tuition_tracker_echo/internal/models"
	"tuition_tracker_echo/internal/reminders"
)

// ReminderRunner is the part of reminders.Service the tasks drive.
type ReminderRunner interface {
	RunScheduled(ctx context.Context, now time.Time) (reminders.RunResult, error)
	RunAll(ctx context.Context, now time.Time) (reminders.RunResult, error)
}

// ScheduledRemindersTaskDef is the daily reminder pass.
type ScheduledRemindersTaskDef struct {
	runner ReminderRunner
}

// TaskID returns the unique identifier for this task
func (t *ScheduledRemindersTaskDef) TaskID() string {
	return "scheduled_reminders"
}

func (t *ScheduledRemindersTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask, now time.Time) (map[string]interface{}, error) {
	result, err := t.runner.RunScheduled(ctx, now)
	return result.Map(), err
}

// ImmediateRemindersTaskDef sweeps both months without day gating. Operators
// enqueue it through the API.
type ImmediateRemindersTaskDef struct {
	runner ReminderRunner
}

// TaskID returns the unique identifier for this task
func (t *ImmediateRemindersTaskDef) TaskID() string {
	return "immediate_reminders"
}

// CreateTask builds a onetime task due at the given time.
func (t *ImmediateRemindersTaskDef) CreateTask(requestedBy string, due time.Time) (*models.ScheduledTask, error) {
	args := map[string]interface{}{"requested_by": requestedBy}
	return BuildScheduledTask(t.TaskID(), args, due, nil, models.ScheduledTaskTypeOneTime, 1)
}

func (t *ImmediateRemindersTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask, now time.Time) (map[string]interface{}, error) {
	result, err := t.runner.RunAll(ctx, now)
	return result.Map(), err
}

// Task names, usable without a runner.
var (
	ScheduledRemindersTask = &ScheduledRemindersTaskDef{}
	ImmediateRemindersTask = &ImmediateRemindersTaskDef{}
)

// DefineTasks registers all available tasks
func DefineTasks(registry *Registry, runner ReminderRunner) {
	scheduled := &ScheduledRemindersTaskDef{runner: runner}
	immediate := &ImmediateRemindersTaskDef{runner: runner}

	registry.Register(scheduled.TaskID(), scheduled.HandleExecution)
	registry.Register(immediate.TaskID(), immediate.HandleExecution)
}
