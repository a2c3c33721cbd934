package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Donation struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	DonorName         string          `gorm:"not null" json:"donor_name"`
	DonorEmail        string          `gorm:"not null" json:"donor_email"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Message           *string         `json:"message,omitempty"`
	CheckoutSessionID *string         `gorm:"index" json:"-"`
	CheckoutURL       *string         `json:"checkout_url,omitempty"`
	Status            string          `gorm:"not null;default:'pending'" json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (donation *Donation) BeforeCreate(tx *gorm.DB) (err error) {
	if donation.ID == uuid.Nil {
		donation.ID = uuid.New()
	}
	return
}
