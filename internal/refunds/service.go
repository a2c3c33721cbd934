package refunds

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aveline/ticketing/internal/inventory"
	"github.com/aveline/ticketing/internal/models"
)

var (
	// ErrDuplicateRequest: the ticket already has a pending or approved
	// refund request.
	ErrDuplicateRequest = errors.New("refunds: a refund request for this ticket is already pending or approved")
	// ErrAlreadyRefunded: the ticket was refunded before this request.
	ErrAlreadyRefunded = errors.New("refunds: this ticket has already been refunded")
	// ErrTicketNotFound: the request names a ticket that does not exist.
	ErrTicketNotFound = errors.New("refunds: ticket not found")
	// ErrInvalidTransition: the requested status is not one of approved,
	// rejected or processed.
	ErrInvalidTransition = errors.New("refunds: invalid status transition")
)

// CreateRequest opens a refund case for one ticket.
type CreateRequest struct {
	TicketID      uuid.UUID
	UserID        *uuid.UUID
	CustomerName  string
	CustomerEmail string
	Reason        string
}

// Service owns the refund-request lifecycle. Processing a request to the
// terminal state marks the ticket refunded and releases its place back to
// inventory.
type Service struct {
	db     *gorm.DB
	ledger *inventory.Ledger
	logger *zap.Logger
}

func NewService(db *gorm.DB, ledger *inventory.Ledger, logger *zap.Logger) *Service {
	return &Service{db: db, ledger: ledger, logger: logger}
}

// Create enforces the one-open-request-per-ticket rule and refuses requests
// for already-refunded tickets.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.RefundRequest, error) {
	var request *models.RefundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ticket, "id = ?", req.TicketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return fmt.Errorf("refunds: loading ticket: %w", err)
		}

		if ticket.PaymentStatus == models.PaymentRefunded {
			return ErrAlreadyRefunded
		}

		var open int64
		if err := tx.Model(&models.RefundRequest{}).
			Where("ticket_id = ? AND status IN ?", req.TicketID,
				[]string{models.RefundPending, models.RefundApproved}).
			Count(&open).Error; err != nil {
			return fmt.Errorf("refunds: counting open requests: %w", err)
		}
		if open > 0 {
			return ErrDuplicateRequest
		}

		request = &models.RefundRequest{
			TicketID:      req.TicketID,
			UserID:        req.UserID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Reason:        req.Reason,
			Status:        models.RefundPending,
			RefundAmount:  ticket.TotalPrice,
		}
		if err := tx.Create(request).Error; err != nil {
			return fmt.Errorf("refunds: persisting request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("refund request created",
		zap.String("request_id", request.ID.String()),
		zap.String("ticket_id", req.TicketID.String()))
	return request, nil
}

// Process moves a request out of pending. ProcessedAt is set in the same
// write; "processed" additionally refunds the ticket and releases its
// place.
func (s *Service) Process(ctx context.Context, requestID uuid.UUID, status string, gatewayRefundID *string) (*models.RefundRequest, error) {
	switch status {
	case models.RefundApproved, models.RefundRejected, models.RefundProcessed:
	default:
		return nil, ErrInvalidTransition
	}

	var request models.RefundRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&request, "id = ?", requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return fmt.Errorf("refunds: loading request: %w", err)
		}

		now := time.Now()
		request.Status = status
		request.ProcessedAt = &now
		request.GatewayRefundID = gatewayRefundID
		if err := tx.Save(&request).Error; err != nil {
			return fmt.Errorf("refunds: updating request: %w", err)
		}

		if status != models.RefundProcessed {
			return nil
		}

		var ticket models.Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&ticket, "id = ?", request.TicketID).Error; err != nil {
			return fmt.Errorf("refunds: loading ticket: %w", err)
		}
		ticket.PaymentStatus = models.PaymentRefunded
		if err := tx.Save(&ticket).Error; err != nil {
			return fmt.Errorf("refunds: refunding ticket: %w", err)
		}

		ref := inventory.PurchasableRef{Kind: inventory.KindFormation}
		if ticket.EventID != nil {
			ref = inventory.PurchasableRef{Kind: inventory.KindEvent, ID: *ticket.EventID}
		} else if ticket.FormationID != nil {
			ref.ID = *ticket.FormationID
		}
		if err := s.ledger.Release(tx, ref, ticket.Quantity); err != nil {
			return fmt.Errorf("refunds: releasing capacity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("refund request processed",
		zap.String("request_id", request.ID.String()),
		zap.String("status", status))
	return &request, nil
}
