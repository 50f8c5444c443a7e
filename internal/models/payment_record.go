package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents whether a month has been settled
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusNotPaid PaymentStatus = "not-paid"
)

// PaymentRecord tracks one student's tuition for one calendar month.
type PaymentRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	StudentID      uint                `gorm:"not null;uniqueIndex:idx_payment_records_student_period,priority:1" json:"student_id"`
	Month          Month               `gorm:"type:varchar(3);not null;uniqueIndex:idx_payment_records_student_period,priority:2;index:idx_payment_records_period,priority:1" json:"month"`
	Year           int                 `gorm:"not null;uniqueIndex:idx_payment_records_student_period,priority:3;index:idx_payment_records_period,priority:2" json:"year"`
	Status         PaymentStatus       `gorm:"type:varchar(20);not null;default:'not-paid'" json:"status"`
	Amount         decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"amount"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	MarkedBy       string              `gorm:"type:varchar(255)" json:"marked_by,omitempty"`
	LastReminderAt *time.Time          `json:"last_reminder_at,omitempty"`

	Student          *Student          `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	NotificationLogs []NotificationLog `gorm:"foreignKey:PaymentRecordID" json:"notification_logs,omitempty"`
}

func (r PaymentRecord) IsPaid() bool {
	return r.Status == PaymentStatusPaid
}
