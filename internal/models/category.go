package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category types mirror the two purchasable kinds.
const (
	CategoryEvent     = "event"
	CategoryFormation = "formation"
)

type Category struct {
	ID         uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	Name       string      `gorm:"not null" json:"name"`
	Type       string      `gorm:"not null;default:'event'" json:"type"`
	Events     []Event     `gorm:"many2many:event_categories;" json:"-"`
	Formations []Formation `gorm:"many2many:formation_categories;" json:"-"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (category *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	return
}
