package issuance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aveline/ticketing/internal/gateway"
	"github.com/aveline/ticketing/internal/inventory"
	"github.com/aveline/ticketing/internal/models"
	"github.com/aveline/ticketing/internal/monitoring"
)

var (
	// ErrXorViolation: the request names neither or both purchasables.
	ErrXorViolation = errors.New("issuance: a ticket must target either an event or a formation, but not both")
	// ErrOwnershipViolation: the acting principal is buying for someone
	// else without an elevated role.
	ErrOwnershipViolation = errors.New("issuance: ticket customer does not match the requesting user")
	// ErrPurchasableNotFound: the referenced event or formation does not
	// exist.
	ErrPurchasableNotFound = errors.New("issuance: event or formation not found")
)

// CheckoutCreator is the slice of the payment gateway issuance needs.
type CheckoutCreator interface {
	CreateSession(ctx context.Context, params gateway.CheckoutParams) (*gateway.Session, error)
}

// Principal identifies who is asking for the ticket.
type Principal struct {
	Email string
	Role  string
}

// Elevated reports whether the principal may buy on behalf of another
// customer.
func (p Principal) Elevated() bool {
	return p.Role == models.RoleAdmin || p.Role == models.RoleValidator
}

// CreateRequest is one ticket purchase.
type CreateRequest struct {
	EventID       *uuid.UUID
	FormationID   *uuid.UUID
	CustomerName  string
	CustomerEmail string
	RequestedBy   Principal
}

// Service orchestrates ticket creation: XOR validation, price resolution,
// capacity reservation, pending persistence and checkout session creation,
// all in a single transaction so a failure at any step leaves no trace.
type Service struct {
	db          *gorm.DB
	ledger      *inventory.Ledger
	checkout    CheckoutCreator
	frontendURL string
	logger      *zap.Logger
}

func NewService(db *gorm.DB, ledger *inventory.Ledger, checkout CheckoutCreator, frontendURL string, logger *zap.Logger) *Service {
	return &Service{
		db:          db,
		ledger:      ledger,
		checkout:    checkout,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

// Create issues a pending ticket for one place and returns it with the
// checkout session attached.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Ticket, error) {
	if (req.EventID == nil) == (req.FormationID == nil) {
		return nil, ErrXorViolation
	}

	if !req.RequestedBy.Elevated() && req.RequestedBy.Email != "" && req.RequestedBy.Email != req.CustomerEmail {
		return nil, ErrOwnershipViolation
	}

	var ticket *models.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, price, product, err := s.resolvePurchasable(tx, req)
		if err != nil {
			return err
		}

		if err := s.ledger.Reserve(tx, ref, 1); err != nil {
			return err
		}

		ticket = &models.Ticket{
			EventID:       req.EventID,
			FormationID:   req.FormationID,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Quantity:      1,
			TotalPrice:    price,
			PaymentStatus: models.PaymentPending,
		}
		if err := tx.Create(ticket).Error; err != nil {
			return fmt.Errorf("issuance: persisting ticket: %w", err)
		}

		session, err := s.checkout.CreateSession(ctx, gateway.CheckoutParams{
			Amount:        price,
			Currency:      "eur",
			ProductName:   product.title,
			Description:   product.description,
			ImageURL:      product.imageURL,
			CustomerEmail: req.CustomerEmail,
			SuccessURL:    s.frontendURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:     s.frontendURL + "/payment/cancel",
			Metadata: map[string]string{
				"ticket_id":    ticket.ID.String(),
				"product_type": string(ref.Kind),
				"product_id":   ref.ID.String(),
			},
		})
		if err != nil {
			return fmt.Errorf("issuance: creating checkout session: %w", err)
		}

		ticket.CheckoutSessionID = &session.ID
		ticket.CheckoutURL = &session.URL
		if err := tx.Save(ticket).Error; err != nil {
			return fmt.Errorf("issuance: storing checkout session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.ReservationsTotal.WithLabelValues(s.kindLabel(req)).Inc()
	s.logger.Info("ticket issued",
		zap.String("ticket_id", ticket.ID.String()),
		zap.String("customer_email", ticket.CustomerEmail))
	return ticket, nil
}

type productInfo struct {
	title       string
	description string
	imageURL    string
	startsAt    time.Time
}

func (s *Service) resolvePurchasable(tx *gorm.DB, req CreateRequest) (inventory.PurchasableRef, decimal.Decimal, productInfo, error) {
	if req.EventID != nil {
		var event models.Event
		if err := tx.First(&event, "id = ?", *req.EventID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return inventory.PurchasableRef{}, decimal.Zero, productInfo{}, ErrPurchasableNotFound
			}
			return inventory.PurchasableRef{}, decimal.Zero, productInfo{}, err
		}
		return inventory.PurchasableRef{Kind: inventory.KindEvent, ID: event.ID},
			event.Price,
			productInfo{title: event.Title, description: event.Description, imageURL: event.ImageURL, startsAt: event.Date},
			nil
	}

	var formation models.Formation
	if err := tx.First(&formation, "id = ?", *req.FormationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.PurchasableRef{}, decimal.Zero, productInfo{}, ErrPurchasableNotFound
		}
		return inventory.PurchasableRef{}, decimal.Zero, productInfo{}, err
	}
	return inventory.PurchasableRef{Kind: inventory.KindFormation, ID: formation.ID},
		formation.Price,
		productInfo{title: formation.Title, description: formation.Description, imageURL: formation.ImageURL, startsAt: formation.StartDate},
		nil
}

func (s *Service) kindLabel(req CreateRequest) string {
	if req.EventID != nil {
		return string(inventory.KindEvent)
	}
	return string(inventory.KindFormation)
}
