package storage

import (
	"gorm.io/gorm"

	"tuition_tracker_echo/internal/models"
)

// EligibleForPeriod keeps payment records whose student is active, or is
// inactive but already paid for that month. Every read path that lists,
// counts or reminds goes through this scope.
func EligibleForPeriod(month models.Month, year int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"(payment_records.student_id IN (SELECT id FROM students WHERE status = ?)"+
				" OR payment_records.student_id IN (SELECT paid.student_id FROM payment_records paid"+
				" WHERE paid.month = ? AND paid.year = ? AND paid.status = ?))",
			models.StudentStatusActive, month, year, models.PaymentStatusPaid,
		)
	}
}

// ForPeriod restricts payment records to one billing month.
func ForPeriod(month models.Month, year int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("payment_records.month = ? AND payment_records.year = ?", month, year)
	}
}

// InClass restricts payment records to students of one class.
func InClass(classID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("payment_records.student_id IN (SELECT id FROM students WHERE class_id = ?)", classID)
	}
}
