package issuance

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aveline/ticketing/config"
	"github.com/aveline/ticketing/internal/gateway"
	"github.com/aveline/ticketing/internal/inventory"
	"github.com/aveline/ticketing/internal/models"
)

type fakeCheckout struct {
	sessions []gateway.CheckoutParams
	err      error
}

func (f *fakeCheckout) CreateSession(ctx context.Context, params gateway.CheckoutParams) (*gateway.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sessions = append(f.sessions, params)
	id := fmt.Sprintf("cs_test_%d", len(f.sessions))
	return &gateway.Session{ID: id, URL: "https://pay.example/" + id}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	return db
}

func newTestService(t *testing.T, db *gorm.DB, checkout *fakeCheckout) *Service {
	t.Helper()
	return NewService(db, inventory.NewLedger(), checkout, "https://front.example", zap.NewNop())
}

func createEvent(t *testing.T, db *gorm.DB, total int) *models.Event {
	t.Helper()
	event := &models.Event{
		Title:            "Jazz Night",
		Description:      "An evening of jazz.",
		EventType:        "concert",
		Date:             time.Now().Add(72 * time.Hour),
		Location:         "Le Trianon",
		ImageURL:         "https://cdn.example/jazz.jpg",
		Price:            decimal.NewFromInt(25),
		TotalTickets:     total,
		AvailableTickets: total,
	}
	require.NoError(t, db.Create(event).Error)
	return event
}

func selfPrincipal(email string) Principal {
	return Principal{Email: email, Role: models.RoleAttendee}
}

func TestCreateEventTicket(t *testing.T) {
	db := newTestDB(t)
	checkout := &fakeCheckout{}
	svc := newTestService(t, db, checkout)
	event := createEvent(t, db, 10)

	ticket, err := svc.Create(context.Background(), CreateRequest{
		EventID:       &event.ID,
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		RequestedBy:   selfPrincipal("alice@example.com"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentPending, ticket.PaymentStatus)
	assert.True(t, ticket.TotalPrice.Equal(decimal.NewFromInt(25)))
	require.NotNil(t, ticket.CheckoutSessionID)
	assert.Equal(t, "cs_test_1", *ticket.CheckoutSessionID)
	require.NotNil(t, ticket.CheckoutURL)

	var stored models.Event
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, 9, stored.AvailableTickets)

	require.Len(t, checkout.sessions, 1)
	params := checkout.sessions[0]
	assert.Equal(t, "Jazz Night", params.ProductName)
	assert.Equal(t, ticket.ID.String(), params.Metadata["ticket_id"])
	assert.Equal(t, "event", params.Metadata["product_type"])
	assert.Equal(t, event.ID.String(), params.Metadata["product_id"])
}

func TestCreateFormationTicket(t *testing.T) {
	db := newTestDB(t)
	checkout := &fakeCheckout{}
	svc := newTestService(t, db, checkout)

	formation := &models.Formation{
		Title:           "Sound Engineering 101",
		Description:     "Mixing basics.",
		ImageURL:        "https://cdn.example/sound.jpg",
		StartDate:       time.Now().Add(7 * 24 * time.Hour),
		Duration:        "2 days",
		Instructor:      "M. Duval",
		Price:           decimal.NewFromInt(120),
		MaxParticipants: 1,
	}
	require.NoError(t, db.Create(formation).Error)

	ticket, err := svc.Create(context.Background(), CreateRequest{
		FormationID:   &formation.ID,
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		RequestedBy:   selfPrincipal("alice@example.com"),
	})
	require.NoError(t, err)
	assert.True(t, ticket.TotalPrice.Equal(decimal.NewFromInt(120)))

	// The pending ticket holds the last place.
	_, err = svc.Create(context.Background(), CreateRequest{
		FormationID:   &formation.ID,
		CustomerName:  "Bob",
		CustomerEmail: "bob@example.com",
		RequestedBy:   selfPrincipal("bob@example.com"),
	})
	var capacityErr *inventory.InsufficientCapacityError
	assert.ErrorAs(t, err, &capacityErr)
}

func TestCreateEnforcesXor(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeCheckout{})
	event := createEvent(t, db, 10)
	formationID := uuid.New()

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		RequestedBy:   selfPrincipal("alice@example.com"),
	})
	assert.ErrorIs(t, err, ErrXorViolation)

	_, err = svc.Create(context.Background(), CreateRequest{
		EventID:       &event.ID,
		FormationID:   &formationID,
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		RequestedBy:   selfPrincipal("alice@example.com"),
	})
	assert.ErrorIs(t, err, ErrXorViolation)
}

func TestCreateEnforcesOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeCheckout{})
	event := createEvent(t, db, 10)

	_, err := svc.Create(context.Background(), CreateRequest{
		EventID:       &event.ID,
		CustomerName:  "Bob",
		CustomerEmail: "bob@example.com",
		RequestedBy:   selfPrincipal("alice@example.com"),
	})
	assert.ErrorIs(t, err, ErrOwnershipViolation)

	// Validators and admins may buy on behalf of a customer.
	_, err = svc.Create(context.Background(), CreateRequest{
		EventID:       &event.ID,
		CustomerName:  "Bob",
		CustomerEmail: "bob@example.com",
		RequestedBy:   Principal{Email: "staff@example.com", Role: models.RoleValidator},
	})
	assert.NoError(t, err)
}

func TestCreateUnknownPurchasable(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeCheckout{})
	missing := uuid.New()

	_, err := svc.Create(context.Background(), CreateRequest{
		EventID:       &missing,
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		RequestedBy:   selfPrincipal("alice@example.com"),
	})
	assert.ErrorIs(t, err, ErrPurchasableNotFound)
}

func TestCreateSoldOutLeavesNoTrace(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeCheckout{})
	event := createEvent(t, db, 0)

	_, err := svc.Create(context.Background(), CreateRequest{
		EventID:       &event.ID,
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		RequestedBy:   selfPrincipal("alice@example.com"),
	})
	var capacityErr *inventory.InsufficientCapacityError
	require.ErrorAs(t, err, &capacityErr)

	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateCheckoutFailureRollsBack(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, &fakeCheckout{err: errors.New("gateway down")})
	event := createEvent(t, db, 5)

	_, err := svc.Create(context.Background(), CreateRequest{
		EventID:       &event.ID,
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		RequestedBy:   selfPrincipal("alice@example.com"),
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Ticket{}).Count(&count).Error)
	assert.Zero(t, count)

	var stored models.Event
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, 5, stored.AvailableTickets)
}
