package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aveline/ticketing/config"
	"github.com/aveline/ticketing/internal/models"
)

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

func createFormation(t *testing.T, db *gorm.DB, maxParticipants int) *models.Formation {
	t.Helper()
	formation := &models.Formation{
		Title:           "Sound Engineering 101",
		Description:     "Mixing basics.",
		ImageURL:        "https://cdn.example/sound.jpg",
		StartDate:       time.Now().Add(7 * 24 * time.Hour),
		Duration:        "2 days",
		Instructor:      "M. Duval",
		Price:           decimal.NewFromInt(120),
		MaxParticipants: maxParticipants,
	}
	require.NoError(t, db.Create(formation).Error)
	return formation
}

func createFormationTicket(t *testing.T, db *gorm.DB, formationID uuid.UUID, status string) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		FormationID:   &formationID,
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		Quantity:      1,
		TotalPrice:    decimal.NewFromInt(120),
		PaymentStatus: status,
	}
	require.NoError(t, db.Create(ticket).Error)
	return ticket
}

func TestReserveEventDecrementsCapacity(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	event := createEvent(t, db, 3)
	ref := PurchasableRef{Kind: KindEvent, ID: event.ID}

	for i := 0; i < 3; i++ {
		require.NoError(t, ledger.Reserve(db, ref, 1))
	}

	err := ledger.Reserve(db, ref, 1)
	var capacityErr *InsufficientCapacityError
	require.ErrorAs(t, err, &capacityErr)
	assert.Equal(t, 0, capacityErr.Available)
	assert.Equal(t, 1, capacityErr.Requested)

	var stored models.Event
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, 0, stored.AvailableTickets)
}

func TestReserveEventFailureLeavesCounterUntouched(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	event := createEvent(t, db, 2)
	ref := PurchasableRef{Kind: KindEvent, ID: event.ID}

	err := ledger.Reserve(db, ref, 5)
	var capacityErr *InsufficientCapacityError
	require.ErrorAs(t, err, &capacityErr)
	assert.Equal(t, 2, capacityErr.Available)

	var stored models.Event
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, 2, stored.AvailableTickets)
}

func TestReserveFormationCountsPendingAndPaid(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	formation := createFormation(t, db, 2)
	ref := PurchasableRef{Kind: KindFormation, ID: formation.ID}

	createFormationTicket(t, db, formation.ID, models.PaymentPaid)
	createFormationTicket(t, db, formation.ID, models.PaymentPending)

	err := ledger.Reserve(db, ref, 1)
	var capacityErr *InsufficientCapacityError
	require.ErrorAs(t, err, &capacityErr)
	assert.Equal(t, 0, capacityErr.Available)
}

func TestReserveFormationIgnoresFailedTickets(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	formation := createFormation(t, db, 1)
	ref := PurchasableRef{Kind: KindFormation, ID: formation.ID}

	createFormationTicket(t, db, formation.ID, models.PaymentFailed)
	createFormationTicket(t, db, formation.ID, models.PaymentRefunded)

	assert.NoError(t, ledger.Reserve(db, ref, 1))
}

func TestReleaseEventIsCappedAtTotal(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	event := createEvent(t, db, 5)
	ref := PurchasableRef{Kind: KindEvent, ID: event.ID}

	require.NoError(t, ledger.Reserve(db, ref, 1))
	require.NoError(t, ledger.Release(db, ref, 1))
	require.NoError(t, ledger.Release(db, ref, 1))

	var stored models.Event
	require.NoError(t, db.First(&stored, "id = ?", event.ID).Error)
	assert.Equal(t, 5, stored.AvailableTickets)
}

func TestAvailableForFormationCountsPaidOnly(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger()
	formation := createFormation(t, db, 10)

	createFormationTicket(t, db, formation.ID, models.PaymentPaid)
	createFormationTicket(t, db, formation.ID, models.PaymentPaid)
	createFormationTicket(t, db, formation.ID, models.PaymentPending)

	available, err := ledger.AvailableForFormation(db, formation.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, available)
}

func TestReserveUnknownKind(t *testing.T) {
	db := newTestDB(t)
	err := NewLedger().Reserve(db, PurchasableRef{Kind: "venue", ID: uuid.New()}, 1)
	assert.Error(t, err)
}
