package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Seeded roles: attendee buys tickets, validator scans them at the gate,
// admin manages the catalogue and refunds.
const (
	RoleAttendee  = "attendee"
	RoleValidator = "validator"
	RoleAdmin     = "admin"
)

type Role struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name      string    `gorm:"unique;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (role *Role) BeforeCreate(tx *gorm.DB) (err error) {
	if role.ID == uuid.Nil {
		role.ID = uuid.New()
	}
	return
}
