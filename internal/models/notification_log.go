package models

import (
	"time"
)

// NotificationType tags why a reminder was sent
type NotificationType string

const (
	NotificationTypeScheduled     NotificationType = "Scheduled"
	NotificationTypeMonthFallback NotificationType = "MonthFallback"
	NotificationTypeEscalation    NotificationType = "Escalation"
)

// NotificationLog is an append-only record of one reminder attempt.
type NotificationLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	PaymentRecordID uint             `gorm:"not null;index" json:"payment_record_id"`
	SentAt          time.Time        `gorm:"not null" json:"sent_at"`
	Type            NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Success         bool             `gorm:"not null" json:"success"`
	ErrorMessage    string           `gorm:"type:text" json:"error_message,omitempty"`
}
