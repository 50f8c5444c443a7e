package models

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// ScheduledTaskStatus represents the status of a scheduled task
type ScheduledTaskStatus string

const (
	ScheduledTaskStatusActive   ScheduledTaskStatus = "active"
	ScheduledTaskStatusRunning  ScheduledTaskStatus = "running"
	ScheduledTaskStatusDone     ScheduledTaskStatus = "done"
	ScheduledTaskStatusFailure  ScheduledTaskStatus = "failure"
	ScheduledTaskStatusDisabled ScheduledTaskStatus = "disabled"
)

// ScheduledTaskType represents the type of scheduled task
type ScheduledTaskType string

const (
	ScheduledTaskTypeOneTime   ScheduledTaskType = "onetime"
	ScheduledTaskTypeRecurring ScheduledTaskType = "recurring"
)

// ScheduledTask is a unit of work the worker runs once Due has passed.
// Recurring tasks carry an RRULE and are re-armed after every run.
type ScheduledTask struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TaskName          string                 `gorm:"type:varchar(255);index" json:"task_name"`
	Arguments         map[string]interface{} `gorm:"type:text;serializer:json" json:"arguments"`
	LastRun           *time.Time             `json:"last_run"`
	Due               time.Time              `gorm:"index:idx_scheduled_tasks_status_due,priority:2" json:"due"`
	RecurringInterval *string                `gorm:"type:text" json:"recurring_interval"`
	Status            ScheduledTaskStatus    `gorm:"type:varchar(20);index:idx_scheduled_tasks_status_due,priority:1" json:"status"`
	TaskType          ScheduledTaskType      `gorm:"type:varchar(20);default:'onetime'" json:"task_type"`
	Attempts          int                    `json:"attempts"`
	MaxAttempt        int                    `json:"max_attempt"`
}

// NextDue returns the first occurrence of the task's rule strictly after the given time.
// Onetime tasks, and recurring tasks without a usable rule, keep their current Due.
func (t ScheduledTask) NextDue(after time.Time) time.Time {
	if t.TaskType == ScheduledTaskTypeOneTime || t.RecurringInterval == nil || *t.RecurringInterval == "" {
		return t.Due
	}
	// Evaluate in the caller's zone so BYHOUR means local wall-clock time even
	// when the stored Due comes back from the database in UTC.
	next, err := NextOccurrence(*t.RecurringInterval, t.Due.In(after.Location()), after, false)
	if err != nil || next.IsZero() {
		return t.Due
	}
	return next
}

// NextOccurrence evaluates an RRULE anchored at dtstart and returns the first
// occurrence after the given time (inclusive when inc is set).
func NextOccurrence(rule string, dtstart, after time.Time, inc bool) (time.Time, error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse rrule %q: %w", rule, err)
	}
	opt.Dtstart = dtstart
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return time.Time{}, fmt.Errorf("build rrule %q: %w", rule, err)
	}
	return r.After(after, inc), nil
}

// ScheduledTaskHistory tracks the execution history of scheduled tasks
type ScheduledTaskHistory struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	ScheduledTaskID uint      `gorm:"index" json:"scheduled_task_id"`

	TaskName      string                 `gorm:"type:varchar(255)" json:"task_name"`
	RunAt         time.Time              `json:"run_at"`
	Runtime       int                    `json:"runtime"` // milliseconds
	Status        string                 `gorm:"type:varchar(50)" json:"status"`
	AttemptNumber int                    `json:"attempt_number"`
	Arguments     map[string]interface{} `gorm:"type:text;serializer:json" json:"arguments"`
	Result        map[string]interface{} `gorm:"type:text;serializer:json" json:"result"`
}
