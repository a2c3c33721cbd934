package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aveline/ticketing/internal/gateway"
	"github.com/aveline/ticketing/internal/models"
	"github.com/aveline/ticketing/internal/monitoring"
	"github.com/aveline/ticketing/internal/notifier"
	"github.com/aveline/ticketing/internal/token"
)

// tokenLifetimeAfterStart: tickets stay redeemable until one day after the
// event or formation starts.
const tokenLifetimeAfterStart = 24 * time.Hour

// Reconciler applies asynchronous payment gateway events to tickets and
// donations. Processing is idempotent: re-delivered events find the object
// already in its terminal state and short-circuit.
type Reconciler struct {
	db       *gorm.DB
	codec    *token.Codec
	notifier notifier.Notifier
	logger   *zap.Logger
}

func NewReconciler(db *gorm.DB, codec *token.Codec, n notifier.Notifier, logger *zap.Logger) *Reconciler {
	return &Reconciler{db: db, codec: codec, notifier: n, logger: logger}
}

// HandleEvent routes one verified gateway event. Unknown types are logged
// and acknowledged so the gateway stops retrying; an error return means an
// internal fault worth a retry.
func (r *Reconciler) HandleEvent(ctx context.Context, event *gateway.Event) error {
	switch event.Type {
	case gateway.EventCheckoutCompleted:
		return r.handleCheckoutCompleted(ctx, event)
	case gateway.EventPaymentFailed:
		return r.handlePaymentFailed(ctx, event)
	case gateway.EventChargeRefunded:
		// Refund state transitions run through the refund-request flow;
		// the gateway notification is acknowledged and recorded only.
		r.logger.Info("charge refunded",
			zap.String("charge_id", event.Data.Object.ID))
		monitoring.WebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		return nil
	default:
		r.logger.Info("unhandled gateway event", zap.String("type", event.Type))
		monitoring.WebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		return nil
	}
}

func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, event *gateway.Event) error {
	session := event.Data.Object
	r.logger.Info("checkout session completed",
		zap.String("session_id", session.ID))

	donation, err := r.resolveDonation(ctx, session)
	if err != nil {
		return err
	}
	if donation != nil {
		return r.confirmDonation(ctx, donation)
	}

	ticket, err := r.resolveTicket(ctx, session)
	if err != nil {
		return err
	}
	if ticket == nil {
		// Events can arrive for unrelated or already purged sessions;
		// acknowledging them is correct, retrying is not.
		r.logger.Warn("checkout session matches no donation or ticket",
			zap.String("session_id", session.ID))
		monitoring.WebhookEventsTotal.WithLabelValues(event.Type, "unmatched").Inc()
		return nil
	}

	return r.confirmTicket(ctx, event.Type, ticket.ID, session.PaymentIntent)
}

// Session-id lookup is authoritative; the metadata id is a legacy fallback
// kept for sessions created before the session id was stored.
func (r *Reconciler) resolveDonation(ctx context.Context, session gateway.SessionObject) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.WithContext(ctx).
		First(&donation, "checkout_session_id = ?", session.ID).Error
	if err == nil {
		return &donation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reconcile: looking up donation: %w", err)
	}

	raw, ok := session.Metadata["donation_id"]
	if !ok {
		return nil, nil
	}
	id, parseErr := uuid.Parse(raw)
	if parseErr != nil {
		return nil, nil
	}
	err = r.db.WithContext(ctx).First(&donation, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile: looking up donation by metadata: %w", err)
	}
	r.logger.Warn("donation resolved via legacy metadata id",
		zap.String("donation_id", id.String()))
	return &donation, nil
}

func (r *Reconciler) resolveTicket(ctx context.Context, session gateway.SessionObject) (*models.Ticket, error) {
	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		First(&ticket, "checkout_session_id = ?", session.ID).Error
	if err == nil {
		return &ticket, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reconcile: looking up ticket: %w", err)
	}

	raw, ok := session.Metadata["ticket_id"]
	if !ok {
		return nil, nil
	}
	id, parseErr := uuid.Parse(raw)
	if parseErr != nil {
		return nil, nil
	}
	err = r.db.WithContext(ctx).First(&ticket, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile: looking up ticket by metadata: %w", err)
	}
	r.logger.Warn("ticket resolved via legacy metadata id",
		zap.String("ticket_id", id.String()))
	return &ticket, nil
}

func (r *Reconciler) confirmDonation(ctx context.Context, donation *models.Donation) error {
	if donation.Status == models.PaymentPaid {
		r.logger.Info("donation already paid, skipping",
			zap.String("donation_id", donation.ID.String()))
		monitoring.WebhookEventsTotal.WithLabelValues(gateway.EventCheckoutCompleted, "duplicate").Inc()
		return nil
	}

	donation.Status = models.PaymentPaid
	if err := r.db.WithContext(ctx).Save(donation).Error; err != nil {
		return fmt.Errorf("reconcile: marking donation paid: %w", err)
	}
	r.logger.Info("donation marked as paid",
		zap.String("donation_id", donation.ID.String()))
	monitoring.WebhookEventsTotal.WithLabelValues(gateway.EventCheckoutCompleted, "processed").Inc()

	if err := r.notifier.SendDonationConfirmation(donation); err != nil {
		// Notification faults never undo a payment commit.
		r.logger.Error("donation confirmation failed",
			zap.String("donation_id", donation.ID.String()),
			zap.Error(err))
		monitoring.NotificationFailuresTotal.WithLabelValues("donation").Inc()
	}
	return nil
}

// confirmTicket re-reads the ticket under a row lock so a re-delivered
// event and the first delivery cannot both mint tokens or send mail.
func (r *Reconciler) confirmTicket(ctx context.Context, eventType string, ticketID uuid.UUID, paymentIntent string) error {
	var confirmed *models.Ticket
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Event").Preload("Formation").
			First(&ticket, "id = ?", ticketID).Error; err != nil {
			return fmt.Errorf("reconcile: locking ticket: %w", err)
		}

		if ticket.PaymentStatus == models.PaymentPaid {
			r.logger.Info("ticket already paid, skipping",
				zap.String("ticket_id", ticket.ID.String()))
			monitoring.WebhookEventsTotal.WithLabelValues(eventType, "duplicate").Inc()
			return nil
		}

		now := time.Now()
		ticket.PaymentStatus = models.PaymentPaid
		ticket.PurchasedAt = &now
		if paymentIntent != "" {
			ticket.PaymentIntentID = &paymentIntent
		}

		expiry := r.tokenExpiry(&ticket)
		signed, err := r.codec.Issue(ticket.ID, ticket.CustomerEmail, expiry)
		if err != nil {
			return fmt.Errorf("reconcile: minting ticket token: %w", err)
		}
		ticket.QRCode = &signed

		if err := tx.Save(&ticket).Error; err != nil {
			return fmt.Errorf("reconcile: marking ticket paid: %w", err)
		}
		confirmed = &ticket
		return nil
	})
	if err != nil {
		return err
	}
	if confirmed == nil {
		return nil
	}

	r.logger.Info("ticket marked as paid",
		zap.String("ticket_id", confirmed.ID.String()))
	monitoring.WebhookEventsTotal.WithLabelValues(eventType, "processed").Inc()

	if err := r.notifier.SendTicketEmail(confirmed); err != nil {
		r.logger.Error("ticket confirmation failed",
			zap.String("ticket_id", confirmed.ID.String()),
			zap.Error(err))
		monitoring.NotificationFailuresTotal.WithLabelValues("ticket").Inc()
	}
	return nil
}

func (r *Reconciler) tokenExpiry(ticket *models.Ticket) time.Time {
	if ticket.Event != nil {
		return ticket.Event.Date.Add(tokenLifetimeAfterStart)
	}
	if ticket.Formation != nil {
		return ticket.Formation.StartDate.Add(tokenLifetimeAfterStart)
	}
	// Orphan reference; give the token a short fuse rather than failing
	// the payment commit.
	return time.Now().Add(tokenLifetimeAfterStart)
}

func (r *Reconciler) handlePaymentFailed(ctx context.Context, event *gateway.Event) error {
	intentID := event.Data.Object.ID

	var ticket models.Ticket
	err := r.db.WithContext(ctx).
		First(&ticket, "payment_intent_id = ?", intentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.logger.Info("payment failure matches no ticket",
			zap.String("payment_intent_id", intentID))
		monitoring.WebhookEventsTotal.WithLabelValues(event.Type, "unmatched").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("reconcile: looking up ticket by payment intent: %w", err)
	}

	ticket.PaymentStatus = models.PaymentFailed
	if err := r.db.WithContext(ctx).Save(&ticket).Error; err != nil {
		return fmt.Errorf("reconcile: marking ticket failed: %w", err)
	}
	r.logger.Info("ticket payment failed",
		zap.String("ticket_id", ticket.ID.String()))
	monitoring.WebhookEventsTotal.WithLabelValues(event.Type, "processed").Inc()
	return nil
}
