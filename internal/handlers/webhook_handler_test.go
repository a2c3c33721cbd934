package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aveline/ticketing/internal/gateway"
	"github.com/aveline/ticketing/internal/models"
)

func createPendingTicket(t *testing.T, f *fixture, event *models.Event, sessionID string) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		EventID:           &event.ID,
		CustomerName:      "Alice",
		CustomerEmail:     "alice@example.com",
		Quantity:          1,
		TotalPrice:        decimal.NewFromInt(25),
		PaymentStatus:     models.PaymentPending,
		CheckoutSessionID: &sessionID,
	}
	require.NoError(t, f.db.Create(ticket).Error)
	return ticket
}

func TestWebhookConfirmsPayment(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, 10)
	ticket := createPendingTicket(t, f, event, "cs_test_1")

	payload := checkoutCompletedPayload("cs_test_1")
	w := f.postWebhook(t, payload, gateway.SignPayload(payload, f.cfg.WebhookSecret, time.Now()))
	require.Equal(t, http.StatusOK, w.Code)

	var stored models.Ticket
	require.NoError(t, f.db.First(&stored, "id = ?", ticket.ID).Error)
	assert.Equal(t, models.PaymentPaid, stored.PaymentStatus)
	assert.NotNil(t, stored.QRCode)
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	f := newFixture(t)
	event := f.createEvent(t, 10)
	ticket := createPendingTicket(t, f, event, "cs_test_1")

	payload := checkoutCompletedPayload("cs_test_1")

	// Forged signature.
	w := f.postWebhook(t, payload, gateway.SignPayload(payload, "whsec_wrong", time.Now()))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Missing header.
	w = f.postWebhook(t, payload, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Stale timestamp.
	w = f.postWebhook(t, payload, gateway.SignPayload(payload, f.cfg.WebhookSecret, time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// None of the rejected deliveries may touch the ticket.
	var stored models.Ticket
	require.NoError(t, f.db.First(&stored, "id = ?", ticket.ID).Error)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
	assert.Nil(t, stored.QRCode)
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	f := newFixture(t)

	payload := []byte("this is not json")
	w := f.postWebhook(t, payload, gateway.SignPayload(payload, f.cfg.WebhookSecret, time.Now()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookAcknowledgesUnmatchedSession(t *testing.T) {
	f := newFixture(t)

	payload := checkoutCompletedPayload("cs_nobody")
	w := f.postWebhook(t, payload, gateway.SignPayload(payload, f.cfg.WebhookSecret, time.Now()))
	assert.Equal(t, http.StatusOK, w.Code)
}
