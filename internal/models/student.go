package models

import (
	"time"
)

// StudentStatus represents the enrollment lifecycle of a student
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "active"
	StudentStatusInactive StudentStatus = "inactive"
)

// Student is enrolled in exactly one class and owns one PaymentRecord per billed month.
type Student struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ClassID              uint          `gorm:"not null;index" json:"class_id"`
	Name                 string        `gorm:"type:varchar(255);not null" json:"name"`
	DateOfBirth          *time.Time    `json:"date_of_birth,omitempty"`
	ParentContactNumber  string        `gorm:"type:varchar(32)" json:"parent_contact_number"`
	ParentWhatsAppNumber string        `gorm:"column:parent_whatsapp_number;type:varchar(32)" json:"parent_whatsapp_number"`
	ParentEmail          string        `gorm:"type:varchar(255)" json:"parent_email"`
	JoinedAt             time.Time     `json:"joined_at"`
	Status               StudentStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	InactiveFrom         *time.Time    `json:"inactive_from,omitempty"`

	Class          *Class          `gorm:"foreignKey:ClassID" json:"class,omitempty"`
	PaymentRecords []PaymentRecord `gorm:"foreignKey:StudentID" json:"payment_records,omitempty"`
}

func (s Student) IsActive() bool {
	return s.Status == StudentStatusActive
}
