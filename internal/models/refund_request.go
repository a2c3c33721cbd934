package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RefundRequest struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TicketID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"ticket_id"`
	Ticket          *Ticket         `gorm:"foreignKey:TicketID" json:"ticket,omitempty"`
	UserID          *uuid.UUID      `gorm:"type:uuid" json:"user_id,omitempty"`
	CustomerName    string          `gorm:"not null" json:"customer_name"`
	CustomerEmail   string          `gorm:"not null" json:"customer_email"`
	Reason          string          `gorm:"type:text;not null" json:"reason"`
	Status          string          `gorm:"not null;default:'pending'" json:"status"`
	RefundAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"refund_amount"`
	GatewayRefundID *string         `json:"gateway_refund_id,omitempty"`
	ProcessedAt     *time.Time      `json:"processed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (request *RefundRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return
}
