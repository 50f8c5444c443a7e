package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"tuition_tracker_echo/internal/reminders"
	"tuition_tracker_echo/internal/storage"
	"tuition_tracker_echo/internal/tasks"
)

// WakeupPublisher notifies the worker that a task is due now.
type WakeupPublisher interface {
	PublishTaskWakeup(ctx context.Context, taskID uint, taskName string) error
}

type ReminderHandler struct {
	db        *gorm.DB
	repo      *storage.Repository
	publisher WakeupPublisher
	clock     func() time.Time
}

// NewReminderHandler wires the reminder endpoints. publisher may be nil, in
// which case the worker picks the task up on its next tick.
func NewReminderHandler(db *gorm.DB, repo *storage.Repository, publisher WakeupPublisher) *ReminderHandler {
	return &ReminderHandler{db: db, repo: repo, publisher: publisher, clock: time.Now}
}

func (h *ReminderHandler) Register(g *echo.Group) {
	g.GET("/reminders/preview", h.Preview)
	g.POST("/reminders/run", h.Run)
}

// Preview is today's schedule with the number of unpaid records per month.
type Preview struct {
	reminders.Schedule
	CurrentUnpaid  int `json:"current_unpaid"`
	PreviousUnpaid int `json:"previous_unpaid"`
}

func (h *ReminderHandler) Preview(c echo.Context) error {
	ctx := c.Request().Context()
	preview := Preview{Schedule: reminders.ScheduleFor(h.clock())}

	current, err := h.repo.UnpaidRecords(ctx, preview.Current)
	if err != nil {
		return err
	}
	previous, err := h.repo.UnpaidRecords(ctx, preview.Previous)
	if err != nil {
		return err
	}
	preview.CurrentUnpaid = len(current)
	preview.PreviousUnpaid = len(previous)

	return respond(c, http.StatusOK, "", preview)
}

type RunAccepted struct {
	TaskID uint      `json:"task_id"`
	Due    time.Time `json:"due"`
}

// Run enqueues an immediate reminder pass over both months.
func (h *ReminderHandler) Run(c echo.Context) error {
	ctx := c.Request().Context()
	now := h.clock()

	task, err := tasks.ImmediateRemindersTask.CreateTask(actor(c), now)
	if err != nil {
		return fmt.Errorf("build reminder task: %w", err)
	}
	if err := h.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("enqueue reminder task: %w", err)
	}

	if h.publisher != nil {
		if err := h.publisher.PublishTaskWakeup(ctx, task.ID, task.TaskName); err != nil {
			// the worker still finds the task on its next tick
			slog.WarnContext(ctx, "Failed to publish task wakeup", "task_id", task.ID, "error", err)
		}
	}

	slog.InfoContext(ctx, "Reminder run requested", "task_id", task.ID, "requested_by", actor(c))
	return respond(c, http.StatusAccepted, "Reminder run scheduled", RunAccepted{TaskID: task.ID, Due: task.Due})
}
