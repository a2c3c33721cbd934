package validation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aveline/ticketing/internal/models"
	"github.com/aveline/ticketing/internal/monitoring"
	"github.com/aveline/ticketing/internal/token"
)

var (
	// ErrInvalidToken: the presented QR payload failed verification.
	ErrInvalidToken = token.ErrInvalidToken
	// ErrTicketNotFound: the token is genuine but its ticket is gone.
	ErrTicketNotFound = errors.New("validation: ticket not found")
)

// AlreadyUsedError keeps the original redemption time for the gate
// operator.
type AlreadyUsedError struct {
	UsedAt time.Time
}

func (e *AlreadyUsedError) Error() string {
	return fmt.Sprintf("ticket already used at %s", e.UsedAt.Format(time.RFC3339))
}

// NotPaidError carries the ticket's current payment status.
type NotPaidError struct {
	Status string
}

func (e *NotPaidError) Error() string {
	return fmt.Sprintf("ticket is not paid (status %q)", e.Status)
}

// Summary is what the gate operator sees after a successful scan.
type Summary struct {
	TicketID      uuid.UUID  `json:"id"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail"`
	EventTitle    string     `json:"eventTitle"`
	PaymentStatus string     `json:"paymentStatus,omitempty"`
	IsUsed        bool       `json:"isUsed"`
	UsedAt        *time.Time `json:"usedAt,omitempty"`
}

// Service performs gate checks: Redeem consumes a ticket exactly once,
// Inspect looks without touching.
type Service struct {
	db     *gorm.DB
	codec  *token.Codec
	logger *zap.Logger
}

func NewService(db *gorm.DB, codec *token.Codec, logger *zap.Logger) *Service {
	return &Service{db: db, codec: codec, logger: logger}
}

// Redeem verifies the token, enforces paid-status and at-most-once usage,
// and marks the ticket used. The read-check-write runs under a row lock so
// two gates scanning the same ticket admit only one.
func (s *Service) Redeem(ctx context.Context, qrCode string) (*Summary, error) {
	claims, err := s.codec.Verify(qrCode)
	if err != nil {
		monitoring.RedemptionsTotal.WithLabelValues("invalid_token").Inc()
		return nil, ErrInvalidToken
	}

	var summary *Summary
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Event").Preload("Formation").
			First(&ticket, "id = ?", claims.TicketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return fmt.Errorf("validation: loading ticket: %w", err)
		}

		if ticket.UsedAt != nil {
			return &AlreadyUsedError{UsedAt: *ticket.UsedAt}
		}
		if ticket.PaymentStatus != models.PaymentPaid {
			return &NotPaidError{Status: ticket.PaymentStatus}
		}

		now := time.Now()
		ticket.UsedAt = &now
		if err := tx.Save(&ticket).Error; err != nil {
			return fmt.Errorf("validation: marking ticket used: %w", err)
		}

		summary = newSummary(&ticket)
		return nil
	})
	if err != nil {
		monitoring.RedemptionsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		return nil, err
	}

	monitoring.RedemptionsTotal.WithLabelValues("success").Inc()
	s.logger.Info("ticket redeemed",
		zap.String("ticket_id", summary.TicketID.String()))
	return summary, nil
}

// Inspect verifies the token and reports the ticket's current state
// without consuming it. Used for administrative dry-run checks.
func (s *Service) Inspect(ctx context.Context, qrCode string) (*Summary, error) {
	claims, err := s.codec.Verify(qrCode)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var ticket models.Ticket
	if err := s.db.WithContext(ctx).
		Preload("Event").Preload("Formation").
		First(&ticket, "id = ?", claims.TicketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("validation: loading ticket: %w", err)
	}

	return newSummary(&ticket), nil
}

func newSummary(ticket *models.Ticket) *Summary {
	return &Summary{
		TicketID:      ticket.ID,
		CustomerName:  ticket.CustomerName,
		CustomerEmail: ticket.CustomerEmail,
		EventTitle:    ticket.PurchasableTitle(),
		PaymentStatus: ticket.PaymentStatus,
		IsUsed:        ticket.IsUsed(),
		UsedAt:        ticket.UsedAt,
	}
}

func outcomeLabel(err error) string {
	var used *AlreadyUsedError
	var unpaid *NotPaidError
	switch {
	case errors.As(err, &used):
		return "already_used"
	case errors.As(err, &unpaid):
		return "not_paid"
	case errors.Is(err, ErrTicketNotFound):
		return "not_found"
	default:
		return "error"
	}
}
