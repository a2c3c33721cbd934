package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Formation struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Title           string          `gorm:"not null" json:"title"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	ImageURL        string          `gorm:"not null" json:"image_url"`
	StartDate       time.Time       `gorm:"not null;index" json:"start_date"`
	Duration        string          `gorm:"not null" json:"duration"`
	Instructor      string          `gorm:"not null" json:"instructor"`
	Price           decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	MaxParticipants int             `gorm:"not null" json:"max_participants"`
	LocationID      *uuid.UUID      `gorm:"type:uuid" json:"location_id,omitempty"`
	Location        *Location       `gorm:"foreignKey:LocationID" json:"location,omitempty"`
	Categories      []Category      `gorm:"many2many:formation_categories;" json:"categories,omitempty"`
	Tickets         []Ticket        `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (formation *Formation) BeforeCreate(tx *gorm.DB) (err error) {
	if formation.ID == uuid.Nil {
		formation.ID = uuid.New()
	}
	return
}
