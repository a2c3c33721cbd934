package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookEventsTotal counts inbound gateway events by type and outcome
	// (processed, ignored, rejected, error).
	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment gateway webhook events received",
		},
		[]string{"event_type", "outcome"},
	)

	// ReservationsTotal counts successful inventory reservations by
	// purchasable kind.
	ReservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_reservations_total",
			Help: "Successful capacity reservations",
		},
		[]string{"kind"},
	)

	// RedemptionsTotal counts gate-check attempts by outcome (success,
	// already_used, not_paid, invalid_token, not_found).
	RedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_redemptions_total",
			Help: "Ticket redemption attempts",
		},
		[]string{"outcome"},
	)

	// NotificationFailuresTotal counts confirmation emails that could not
	// be sent. These never roll back a payment commit.
	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Confirmation emails that failed to send",
		},
		[]string{"kind"},
	)
)
