package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Event struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	Title            string          `gorm:"not null" json:"title"`
	Description      string          `gorm:"type:text;not null" json:"description"`
	EventType        string          `gorm:"not null;index" json:"event_type"`
	Date             time.Time       `gorm:"not null;index" json:"date"`
	Location         string          `gorm:"not null" json:"location"`
	ImageURL         string          `gorm:"not null" json:"image_url"`
	Price            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	TotalTickets     int             `gorm:"not null" json:"total_tickets"`
	AvailableTickets int             `gorm:"not null" json:"available_tickets"`
	Categories       []Category      `gorm:"many2many:event_categories;" json:"categories,omitempty"`
	Tickets          []Ticket        `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (event *Event) BeforeCreate(tx *gorm.DB) (err error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return
}
