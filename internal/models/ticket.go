package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrTicketReference is raised when a ticket does not reference exactly
// one of event or formation.
var ErrTicketReference = errors.New("a ticket must reference either an event or a formation, but not both")

type Ticket struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	EventID           *uuid.UUID      `gorm:"type:uuid;index" json:"event_id,omitempty"`
	Event             *Event          `gorm:"foreignKey:EventID" json:"event,omitempty"`
	FormationID       *uuid.UUID      `gorm:"type:uuid;index" json:"formation_id,omitempty"`
	Formation         *Formation      `gorm:"foreignKey:FormationID" json:"formation,omitempty"`
	CustomerName      string          `gorm:"not null" json:"customer_name"`
	CustomerEmail     string          `gorm:"not null;index" json:"customer_email"`
	Quantity          int             `gorm:"not null;default:1" json:"quantity"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	PaymentStatus     string          `gorm:"not null;default:'pending'" json:"payment_status"`
	CheckoutSessionID *string         `gorm:"index" json:"-"`
	CheckoutURL       *string         `json:"checkout_url,omitempty"`
	PaymentIntentID   *string         `gorm:"index" json:"-"`
	QRCode            *string         `gorm:"index" json:"qr_code,omitempty"`
	UsedAt            *time.Time      `json:"used_at,omitempty"`
	PurchasedAt       *time.Time      `json:"purchased_at,omitempty"`
	RefundRequests    []RefundRequest `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (ticket *Ticket) BeforeCreate(tx *gorm.DB) (err error) {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return
}

// BeforeSave keeps the event/formation XOR invariant on every write path,
// not only at issuance.
func (ticket *Ticket) BeforeSave(tx *gorm.DB) error {
	if (ticket.EventID == nil) == (ticket.FormationID == nil) {
		return ErrTicketReference
	}
	return nil
}

// IsUsed reports whether the ticket has already been redeemed at the gate.
func (ticket *Ticket) IsUsed() bool {
	return ticket.UsedAt != nil
}

// PurchasableTitle returns the title of the event or formation the ticket
// was issued against.
func (ticket *Ticket) PurchasableTitle() string {
	if ticket.Event != nil {
		return ticket.Event.Title
	}
	if ticket.Formation != nil {
		return ticket.Formation.Title
	}
	return ""
}
