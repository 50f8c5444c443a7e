package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tuition_tracker_echo/internal/models"
	"tuition_tracker_echo/internal/reminders"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// DefaultPageSize is the number of students per listing page.
const DefaultPageSize = 15

// Repository is the gorm-backed store for classes, students, payment records
// and notification logs.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ reminders.Store = (*Repository)(nil)

// UnpaidRecords implements reminders.Store.
func (r *Repository) UnpaidRecords(ctx context.Context, period reminders.Period, studentIDs ...uint) ([]models.PaymentRecord, error) {
	query := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Preload("Student").
		Scopes(ForPeriod(period.Month, period.Year), EligibleForPeriod(period.Month, period.Year)).
		Where("payment_records.status = ?", models.PaymentStatusNotPaid)

	if len(studentIDs) > 0 {
		query = query.Where("payment_records.student_id IN ?", studentIDs)
	}

	var records []models.PaymentRecord
	if err := query.Order("payment_records.id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("query unpaid records: %w", err)
	}
	return records, nil
}

// LogNotification implements reminders.Store.
func (r *Repository) LogNotification(ctx context.Context, entry *models.NotificationLog, remindedAt *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("insert notification log: %w", err)
		}
		if remindedAt == nil {
			return nil
		}
		res := tx.Model(&models.PaymentRecord{}).
			Where("id = ?", entry.PaymentRecordID).
			Update("last_reminder_at", *remindedAt)
		if res.Error != nil {
			return fmt.Errorf("update last reminder: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("payment record %d: %w", entry.PaymentRecordID, ErrNotFound)
		}
		return nil
	})
}

// Classes

func (r *Repository) CreateClass(ctx context.Context, class *models.Class) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Class{}).Where("LOWER(name) = ?", strings.ToLower(class.Name)).Count(&count).Error; err != nil {
		return fmt.Errorf("check class name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("class %q: %w", class.Name, ErrDuplicate)
	}
	if err := r.db.WithContext(ctx).Create(class).Error; err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

func (r *Repository) ListClasses(ctx context.Context) ([]models.Class, error) {
	var classes []models.Class
	if err := r.db.WithContext(ctx).Order("name").Find(&classes).Error; err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

func (r *Repository) GetClass(ctx context.Context, id uint) (*models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return nil, notFound(err, "class %d", id)
	}
	return &class, nil
}

// Students

// CreateStudent enrolls a student and creates one unpaid record for every
// month from now's month through December.
func (r *Repository) CreateStudent(ctx context.Context, student *models.Student, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Class{}).Where("id = ?", student.ClassID).Count(&count).Error; err != nil {
			return fmt.Errorf("check class: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("class %d: %w", student.ClassID, ErrNotFound)
		}

		if student.Status == "" {
			student.Status = models.StudentStatusActive
		}
		if student.JoinedAt.IsZero() {
			student.JoinedAt = now
		}
		if err := tx.Create(student).Error; err != nil {
			return fmt.Errorf("create student: %w", err)
		}

		records := make([]models.PaymentRecord, 0, 12)
		for _, month := range models.Months[now.Month()-1:] {
			records = append(records, models.PaymentRecord{
				StudentID: student.ID,
				Month:     month,
				Year:      now.Year(),
				Status:    models.PaymentStatusNotPaid,
			})
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("create payment records: %w", err)
		}
		return nil
	})
}

func (r *Repository) GetStudent(ctx context.Context, id uint) (*models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return nil, notFound(err, "student %d", id)
	}
	return &student, nil
}

// StudentUpdate holds editable student fields. Nil fields are left unchanged.
type StudentUpdate struct {
	Name                 *string
	DateOfBirth          *time.Time
	ParentContactNumber  *string
	ParentWhatsAppNumber *string
	ParentEmail          *string
}

func (r *Repository) UpdateStudent(ctx context.Context, id uint, upd StudentUpdate) (*models.Student, error) {
	updates := map[string]interface{}{}
	if upd.Name != nil {
		updates["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.DateOfBirth != nil {
		updates["date_of_birth"] = *upd.DateOfBirth
	}
	if upd.ParentContactNumber != nil {
		updates["parent_contact_number"] = *upd.ParentContactNumber
	}
	if upd.ParentWhatsAppNumber != nil {
		updates["parent_whatsapp_number"] = *upd.ParentWhatsAppNumber
	}
	if upd.ParentEmail != nil {
		updates["parent_email"] = *upd.ParentEmail
	}

	student, err := r.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return student, nil
	}
	if err := r.db.WithContext(ctx).Model(student).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update student %d: %w", id, err)
	}
	return r.GetStudent(ctx, id)
}

// DeleteStudent removes the student with all payment records and their logs.
func (r *Repository) DeleteStudent(ctx context.Context, id uint) (*models.Student, error) {
	student, err := r.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := tx.Model(&models.PaymentRecord{}).Select("id").Where("student_id = ?", id)
		if err := tx.Where("payment_record_id IN (?)", records).Delete(&models.NotificationLog{}).Error; err != nil {
			return fmt.Errorf("delete notification logs: %w", err)
		}
		if err := tx.Where("student_id = ?", id).Delete(&models.PaymentRecord{}).Error; err != nil {
			return fmt.Errorf("delete payment records: %w", err)
		}
		if err := tx.Delete(&models.Student{}, id).Error; err != nil {
			return fmt.Errorf("delete student: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Deleted student", "student_id", id, "class_id", student.ClassID)
	return student, nil
}

// DeactivateStudent removes a student from their class. Unpaid records and
// their logs are deleted; paid history stays.
func (r *Repository) DeactivateStudent(ctx context.Context, id uint, now time.Time) (*models.Student, error) {
	if _, err := r.GetStudent(ctx, id); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Student{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":        models.StudentStatusInactive,
			"inactive_from": now,
		}).Error; err != nil {
			return fmt.Errorf("mark student inactive: %w", err)
		}

		unpaid := tx.Model(&models.PaymentRecord{}).Select("id").
			Where("student_id = ? AND status = ?", id, models.PaymentStatusNotPaid)
		if err := tx.Where("payment_record_id IN (?)", unpaid).Delete(&models.NotificationLog{}).Error; err != nil {
			return fmt.Errorf("delete notification logs: %w", err)
		}
		if err := tx.Where("student_id = ? AND status = ?", id, models.PaymentStatusNotPaid).
			Delete(&models.PaymentRecord{}).Error; err != nil {
			return fmt.Errorf("delete unpaid records: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetStudent(ctx, id)
}

// Payment records

// StudentFilter selects rows for the class listing.
type StudentFilter struct {
	ClassID uint
	Month   models.Month
	Year    int
	Status  models.PaymentStatus // empty for all
	Search  string
	Page    int
	Limit   int
}

// StudentPage is one page of payment records with their students.
type StudentPage struct {
	Records []models.PaymentRecord
	Page    int
	HasNext bool
}

func (r *Repository) ListStudentPayments(ctx context.Context, f StudentFilter) (StudentPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageSize
	}

	query := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Joins("JOIN students ON students.id = payment_records.student_id").
		Preload("Student").
		Scopes(ForPeriod(f.Month, f.Year), InClass(f.ClassID), EligibleForPeriod(f.Month, f.Year))

	if f.Status != "" {
		query = query.Where("payment_records.status = ?", f.Status)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		query = query.Where("LOWER(students.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var records []models.PaymentRecord
	err := query.Order("students.name").Order("payment_records.id").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit + 1).
		Find(&records).Error
	if err != nil {
		return StudentPage{}, fmt.Errorf("list student payments: %w", err)
	}

	page := StudentPage{Page: f.Page}
	if len(records) > f.Limit {
		page.HasNext = true
		records = records[:f.Limit]
	}
	page.Records = records
	return page, nil
}

// Stats counts eligible students for a class and month.
type Stats struct {
	Total  int64 `json:"total"`
	Paid   int64 `json:"paid"`
	Unpaid int64 `json:"unpaid"`
}

func (r *Repository) PaymentStats(ctx context.Context, classID uint, month models.Month, year int) (Stats, error) {
	type row struct {
		Status models.PaymentStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Select("payment_records.status AS status, COUNT(*) AS count").
		Scopes(ForPeriod(month, year), InClass(classID), EligibleForPeriod(month, year)).
		Group("payment_records.status").
		Scan(&rows).Error
	if err != nil {
		return Stats{}, fmt.Errorf("payment stats: %w", err)
	}

	var stats Stats
	for _, rw := range rows {
		stats.Total += rw.Count
		if rw.Status == models.PaymentStatusPaid {
			stats.Paid += rw.Count
		} else {
			stats.Unpaid += rw.Count
		}
	}
	return stats, nil
}

// StatusChange describes a payment status update.
type StatusChange struct {
	StudentID uint
	Month     models.Month
	Year      int
	Status    models.PaymentStatus
	Amount    *decimal.Decimal
	MarkedBy  string
}

// UpdatePaymentStatus marks a record paid or unpaid. Marking unpaid clears the
// paid timestamp, marked-by and amount.
func (r *Repository) UpdatePaymentStatus(ctx context.Context, change StatusChange, now time.Time) (*models.PaymentRecord, error) {
	record, err := r.findRecord(ctx, change.StudentID, change.Month, change.Year)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": change.Status}
	switch change.Status {
	case models.PaymentStatusPaid:
		updates["paid_at"] = now
		updates["marked_by"] = change.MarkedBy
		if change.Amount != nil {
			updates["amount"] = decimal.NewNullDecimal(*change.Amount)
		}
	case models.PaymentStatusNotPaid:
		updates["paid_at"] = nil
		updates["marked_by"] = ""
		updates["amount"] = decimal.NullDecimal{}
	default:
		return nil, fmt.Errorf("unknown payment status %q", change.Status)
	}

	if err := r.db.WithContext(ctx).Model(record).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	return r.findRecord(ctx, change.StudentID, change.Month, change.Year)
}

func (r *Repository) UpdatePaymentAmount(ctx context.Context, studentID uint, month models.Month, year int, amount decimal.Decimal) (*models.PaymentRecord, error) {
	record, err := r.findRecord(ctx, studentID, month, year)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(record).Update("amount", decimal.NewNullDecimal(amount)).Error; err != nil {
		return nil, fmt.Errorf("update payment amount: %w", err)
	}
	return r.findRecord(ctx, studentID, month, year)
}

func (r *Repository) findRecord(ctx context.Context, studentID uint, month models.Month, year int) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("student_id = ? AND month = ? AND year = ?", studentID, month, year).
		First(&record).Error
	if err != nil {
		return nil, notFound(err, "payment record for student %d %s %d", studentID, month, year)
	}
	return &record, nil
}

// NotificationHistory returns the reminder attempts for a student, newest first.
func (r *Repository) NotificationHistory(ctx context.Context, studentID uint, limit int) ([]models.NotificationLog, error) {
	if limit < 1 {
		limit = 50
	}
	var logs []models.NotificationLog
	err := r.db.WithContext(ctx).
		Joins("JOIN payment_records ON payment_records.id = notification_logs.payment_record_id").
		Where("payment_records.student_id = ?", studentID).
		Order("notification_logs.sent_at DESC").
		Order("notification_logs.id DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("notification history: %w", err)
	}
	return logs, nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
