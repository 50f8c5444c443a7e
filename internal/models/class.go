package models

import (
	"time"
)

// Class groups students that are billed together.
type Class struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string    `gorm:"type:varchar(255);not null" json:"name"`
	OwnerUID string    `gorm:"type:varchar(128);index" json:"owner_uid"`
	Students []Student `gorm:"foreignKey:ClassID" json:"students,omitempty"`
}
