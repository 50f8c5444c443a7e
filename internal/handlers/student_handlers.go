package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"tuition_tracker_echo/internal/models"
	"tuition_tracker_echo/internal/reminders"
	"tuition_tracker_echo/internal/services"
	"tuition_tracker_echo/internal/storage"
)

type StudentHandler struct {
	repo     *storage.Repository
	cache    *services.RedisCache
	cacheTTL time.Duration
	clock    func() time.Time
}

// NewStudentHandler wires the student endpoints. cache may be nil.
func NewStudentHandler(repo *storage.Repository, cache *services.RedisCache, cacheTTL time.Duration) *StudentHandler {
	return &StudentHandler{repo: repo, cache: cache, cacheTTL: cacheTTL, clock: time.Now}
}

func (h *StudentHandler) Register(g *echo.Group) {
	g.GET("/classes/:id/students", h.ListStudents)
	g.GET("/classes/:id/stats", h.Stats)
	g.POST("/students", h.CreateStudent)
	g.GET("/students/:id", h.GetStudent)
	g.PUT("/students/:id", h.UpdateStudent)
	g.DELETE("/students/:id", h.DeleteStudent)
	g.POST("/students/:id/remove", h.RemoveFromClass)
	g.PUT("/students/:id/payment-status", h.UpdatePaymentStatus)
	g.PUT("/students/:id/amount", h.UpdateAmount)
	g.GET("/students/:id/notifications", h.Notifications)
}

// StudentRow is one line of the class listing for a month.
type StudentRow struct {
	StudentID           uint                 `json:"student_id"`
	Name                string               `json:"name"`
	ParentContactNumber string               `json:"parent_contact_number"`
	StudentStatus       models.StudentStatus `json:"student_status"`
	RecordID            uint                 `json:"record_id"`
	Month               models.Month         `json:"month"`
	Year                int                  `json:"year"`
	Status              models.PaymentStatus `json:"status"`
	Amount              decimal.NullDecimal  `json:"amount"`
	PaidAt              *time.Time           `json:"paid_at,omitempty"`
	LastReminderAt      *time.Time           `json:"last_reminder_at,omitempty"`
	DaysDue             int                  `json:"days_due"`
}

type StudentList struct {
	Month   models.Month `json:"month"`
	Year    int          `json:"year"`
	Page    int          `json:"page"`
	HasNext bool         `json:"has_next"`
	Rows    []StudentRow `json:"rows"`
}

func newStudentRow(record models.PaymentRecord, now time.Time) StudentRow {
	row := StudentRow{
		StudentID:      record.StudentID,
		RecordID:       record.ID,
		Month:          record.Month,
		Year:           record.Year,
		Status:         record.Status,
		Amount:         record.Amount,
		PaidAt:         record.PaidAt,
		LastReminderAt: record.LastReminderAt,
	}
	if record.Student != nil {
		row.Name = record.Student.Name
		row.ParentContactNumber = record.Student.ParentContactNumber
		row.StudentStatus = record.Student.Status
	}
	if !record.IsPaid() {
		row.DaysDue = reminders.DaysDue(record.Month, now)
	}
	return row
}

func statusFilter(raw string) (models.PaymentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return "", nil
	case "paid":
		return models.PaymentStatusPaid, nil
	case "unpaid", "not-paid":
		return models.PaymentStatusNotPaid, nil
	}
	return "", echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
}

// ListStudents returns one page of a class's students with their record for
// the requested month of the current year.
func (h *StudentHandler) ListStudents(c echo.Context) error {
	now := h.clock()
	classID, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	month, err := monthQuery(c, now)
	if err != nil {
		return err
	}
	status, err := statusFilter(c.QueryParam("status"))
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.repo.GetClass(ctx, classID); err != nil {
		return err
	}

	page, err := h.repo.ListStudentPayments(ctx, storage.StudentFilter{
		ClassID: classID,
		Month:   month,
		Year:    now.Year(),
		Status:  status,
		Search:  c.QueryParam("search"),
		Page:    pageQuery(c),
	})
	if err != nil {
		return err
	}

	rows := make([]StudentRow, 0, len(page.Records))
	for _, record := range page.Records {
		rows = append(rows, newStudentRow(record, now))
	}
	return respond(c, http.StatusOK, "", StudentList{
		Month:   month,
		Year:    now.Year(),
		Page:    page.Page,
		HasNext: page.HasNext,
		Rows:    rows,
	})
}

func statsCacheKey(classID uint, month models.Month, year int) string {
	return fmt.Sprintf("%s%s:%d", statsCachePrefix(classID), month, year)
}

func statsCachePrefix(classID uint) string {
	return fmt.Sprintf("stats:class:%d:", classID)
}

func (h *StudentHandler) invalidateStats(c echo.Context, classID uint) {
	if err := h.cache.DeletePrefix(c.Request().Context(), statsCachePrefix(classID)); err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to invalidate stats cache", "class_id", classID, "error", err)
	}
}

// Stats returns paid/unpaid counts for a class and month, cached in Redis.
func (h *StudentHandler) Stats(c echo.Context) error {
	now := h.clock()
	classID, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	month, err := monthQuery(c, now)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if _, err := h.repo.GetClass(ctx, classID); err != nil {
		return err
	}

	stats, err := services.GetOrSet(h.cache, ctx, statsCacheKey(classID, month, now.Year()), h.cacheTTL, func() (storage.Stats, error) {
		return h.repo.PaymentStats(ctx, classID, month, now.Year())
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", stats)
}

type createStudentRequest struct {
	ClassID              uint       `json:"class_id" validate:"required"`
	Name                 string     `json:"name" validate:"required,max=255"`
	DateOfBirth          *time.Time `json:"date_of_birth"`
	ParentContactNumber  string     `json:"parent_contact_number" validate:"required,max=32"`
	ParentWhatsAppNumber string     `json:"parent_whatsapp_number" validate:"omitempty,max=32"`
	ParentEmail          string     `json:"parent_email" validate:"omitempty,email"`
}

// CreateStudent enrolls a student and opens unpaid records for the rest of the year.
func (h *StudentHandler) CreateStudent(c echo.Context) error {
	var req createStudentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	student := models.Student{
		ClassID:              req.ClassID,
		Name:                 strings.TrimSpace(req.Name),
		DateOfBirth:          req.DateOfBirth,
		ParentContactNumber:  strings.TrimSpace(req.ParentContactNumber),
		ParentWhatsAppNumber: strings.TrimSpace(req.ParentWhatsAppNumber),
		ParentEmail:          strings.TrimSpace(req.ParentEmail),
	}
	if err := h.repo.CreateStudent(c.Request().Context(), &student, h.clock()); err != nil {
		return err
	}
	h.invalidateStats(c, student.ClassID)
	return respond(c, http.StatusCreated, "Student created successfully", student)
}

func (h *StudentHandler) GetStudent(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	student, err := h.repo.GetStudent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", student)
}

type updateStudentRequest struct {
	Name                 *string    `json:"name" validate:"omitempty,min=1,max=255"`
	DateOfBirth          *time.Time `json:"date_of_birth"`
	ParentContactNumber  *string    `json:"parent_contact_number" validate:"omitempty,max=32"`
	ParentWhatsAppNumber *string    `json:"parent_whatsapp_number" validate:"omitempty,max=32"`
	ParentEmail          *string    `json:"parent_email" validate:"omitempty,email"`
}

func (h *StudentHandler) UpdateStudent(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req updateStudentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	student, err := h.repo.UpdateStudent(c.Request().Context(), id, storage.StudentUpdate{
		Name:                 req.Name,
		DateOfBirth:          req.DateOfBirth,
		ParentContactNumber:  req.ParentContactNumber,
		ParentWhatsAppNumber: req.ParentWhatsAppNumber,
		ParentEmail:          req.ParentEmail,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Student updated successfully", student)
}

// DeleteStudent removes the student together with its records and logs
func (h *StudentHandler) DeleteStudent(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	student, err := h.repo.DeleteStudent(c.Request().Context(), id)
	if err != nil {
		return err
	}
	h.invalidateStats(c, student.ClassID)
	return respond(c, http.StatusOK, "Student deleted successfully", nil)
}

// RemoveFromClass deactivates a student. Paid history is kept.
func (h *StudentHandler) RemoveFromClass(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	student, err := h.repo.DeactivateStudent(c.Request().Context(), id, h.clock())
	if err != nil {
		return err
	}
	h.invalidateStats(c, student.ClassID)
	return respond(c, http.StatusOK, "Student removed from class", student)
}

type updateStatusRequest struct {
	Month  string           `json:"month" validate:"required,month"`
	Year   int              `json:"year" validate:"omitempty,min=2000,max=2100"`
	Status string           `json:"status" validate:"required,oneof=paid not-paid"`
	Amount *decimal.Decimal `json:"amount"`
}

// UpdatePaymentStatus marks a month paid or unpaid. The caller's identity is
// recorded as marked-by.
func (h *StudentHandler) UpdatePaymentStatus(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req updateStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must not be negative")
	}

	now := h.clock()
	month, _ := models.ParseMonth(req.Month)
	year := req.Year
	if year == 0 {
		year = now.Year()
	}

	record, err := h.repo.UpdatePaymentStatus(c.Request().Context(), storage.StatusChange{
		StudentID: id,
		Month:     month,
		Year:      year,
		Status:    models.PaymentStatus(req.Status),
		Amount:    req.Amount,
		MarkedBy:  actor(c),
	}, now)
	if err != nil {
		return err
	}
	if record.Student != nil {
		h.invalidateStats(c, record.Student.ClassID)
	}
	return respond(c, http.StatusOK, "Payment status updated", newStudentRow(*record, now))
}

type updateAmountRequest struct {
	Month  string          `json:"month" validate:"required,month"`
	Year   int             `json:"year" validate:"omitempty,min=2000,max=2100"`
	Amount decimal.Decimal `json:"amount"`
}

func (h *StudentHandler) UpdateAmount(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	var req updateAmountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Amount.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "amount must not be negative")
	}

	now := h.clock()
	month, _ := models.ParseMonth(req.Month)
	year := req.Year
	if year == 0 {
		year = now.Year()
	}

	record, err := h.repo.UpdatePaymentAmount(c.Request().Context(), id, month, year, req.Amount)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "Amount updated", newStudentRow(*record, now))
}

// Notifications lists the reminder attempts for a student, newest first
func (h *StudentHandler) Notifications(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.repo.GetStudent(ctx, id); err != nil {
		return err
	}
	logs, err := h.repo.NotificationHistory(ctx, id, 50)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", logs)
}
