package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aveline/ticketing/internal/models"
)

// PurchasableKind discriminates the two things a ticket can be issued
// against.
type PurchasableKind string

const (
	KindEvent     PurchasableKind = "event"
	KindFormation PurchasableKind = "formation"
)

// PurchasableRef names one event or one formation. Using a tagged reference
// instead of two nullable ids keeps the XOR decision out of the ledger.
type PurchasableRef struct {
	Kind PurchasableKind
	ID   uuid.UUID
}

// InsufficientCapacityError reports a failed reservation. Capacity is left
// exactly as it was.
type InsufficientCapacityError struct {
	Available int
	Requested int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("insufficient capacity: %d requested, %d available", e.Requested, e.Available)
}

// Ledger tracks sold and remaining places for events and formations. Every
// mutation runs under a FOR UPDATE lock on the purchasable row so that
// concurrent purchases across process instances cannot oversell.
type Ledger struct{}

func NewLedger() *Ledger {
	return &Ledger{}
}

// Reserve decrements available capacity by quantity inside tx. The caller
// owns the transaction: rolling it back releases the reservation.
func (l *Ledger) Reserve(tx *gorm.DB, ref PurchasableRef, quantity int) error {
	switch ref.Kind {
	case KindEvent:
		return l.reserveEvent(tx, ref.ID, quantity)
	case KindFormation:
		return l.reserveFormation(tx, ref.ID, quantity)
	default:
		return fmt.Errorf("inventory: unknown purchasable kind %q", ref.Kind)
	}
}

func (l *Ledger) reserveEvent(tx *gorm.DB, eventID uuid.UUID, quantity int) error {
	var event models.Event
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, "id = ?", eventID).Error; err != nil {
		return fmt.Errorf("inventory: loading event %s: %w", eventID, err)
	}

	if event.AvailableTickets < quantity {
		return &InsufficientCapacityError{Available: event.AvailableTickets, Requested: quantity}
	}

	return tx.Model(&models.Event{}).
		Where("id = ?", eventID).
		Update("available_tickets", gorm.Expr("available_tickets - ?", quantity)).Error
}

// Formations have no stored counter: remaining places are derived from the
// tickets referencing them. Pending tickets count against capacity here so
// two buyers cannot both reserve the last place while a payment is in
// flight; the public availability figure only counts paid tickets.
func (l *Ledger) reserveFormation(tx *gorm.DB, formationID uuid.UUID, quantity int) error {
	var formation models.Formation
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&formation, "id = ?", formationID).Error; err != nil {
		return fmt.Errorf("inventory: loading formation %s: %w", formationID, err)
	}

	var taken int64
	if err := tx.Model(&models.Ticket{}).
		Where("formation_id = ? AND payment_status IN ?", formationID,
			[]string{models.PaymentPending, models.PaymentPaid}).
		Count(&taken).Error; err != nil {
		return fmt.Errorf("inventory: counting formation tickets: %w", err)
	}

	available := formation.MaxParticipants - int(taken)
	if available < quantity {
		if available < 0 {
			available = 0
		}
		return &InsufficientCapacityError{Available: available, Requested: quantity}
	}
	return nil
}

// Release restores capacity after a refund or cancellation. Event counters
// are capped at the total so repeated releases cannot inflate capacity.
func (l *Ledger) Release(tx *gorm.DB, ref PurchasableRef, quantity int) error {
	switch ref.Kind {
	case KindEvent:
		var event models.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&event, "id = ?", ref.ID).Error; err != nil {
			return fmt.Errorf("inventory: loading event %s: %w", ref.ID, err)
		}

		restored := event.AvailableTickets + quantity
		if restored > event.TotalTickets {
			restored = event.TotalTickets
		}
		return tx.Model(&models.Event{}).
			Where("id = ?", ref.ID).
			Update("available_tickets", restored).Error
	case KindFormation:
		// Derived capacity: freeing the place is the status change on the
		// ticket itself, nothing to restore here.
		return nil
	default:
		return fmt.Errorf("inventory: unknown purchasable kind %q", ref.Kind)
	}
}

// AvailableForFormation is the public figure: places not yet taken by paid
// tickets.
func (l *Ledger) AvailableForFormation(db *gorm.DB, formationID uuid.UUID) (int, error) {
	var formation models.Formation
	if err := db.First(&formation, "id = ?", formationID).Error; err != nil {
		return 0, err
	}

	var paid int64
	if err := db.Model(&models.Ticket{}).
		Where("formation_id = ? AND payment_status = ?", formationID, models.PaymentPaid).
		Count(&paid).Error; err != nil {
		return 0, err
	}

	available := formation.MaxParticipants - int(paid)
	if available < 0 {
		available = 0
	}
	return available, nil
}
