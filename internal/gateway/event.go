package gateway

import (
	"encoding/json"
	"errors"
	"time"
)

// Event types this platform reacts to. Anything else is logged and
// acknowledged so the provider does not keep retrying.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventPaymentFailed     = "payment_intent.payment_failed"
	EventChargeRefunded    = "charge.refunded"
)

var ErrInvalidPayload = errors.New("gateway: invalid event payload")

// Event is a verified webhook notification from the payment provider.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object SessionObject `json:"object"`
	} `json:"data"`
}

// SessionObject carries the fields of the checkout session / payment intent
// / charge the event is about. Metadata echoes what was attached when the
// session was created.
type SessionObject struct {
	ID            string            `json:"id"`
	PaymentIntent string            `json:"payment_intent,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ParseEvent decodes a raw payload without any authenticity check. Only
// ConstructEvent should be used on untrusted input.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ErrInvalidPayload
	}
	if event.Type == "" {
		return nil, ErrInvalidPayload
	}
	return &event, nil
}

// ConstructEvent verifies the provider signature before decoding the
// payload. Skipping verification is only possible through the explicit
// test-mode flag, never implicitly.
func ConstructEvent(payload []byte, sigHeader, secret string, skipVerification bool) (*Event, error) {
	if !skipVerification {
		if err := VerifySignature(payload, sigHeader, secret, DefaultTolerance); err != nil {
			return nil, err
		}
	}
	return ParseEvent(payload)
}

// DefaultTolerance bounds how stale a signed timestamp may be before the
// payload is rejected as a replay.
const DefaultTolerance = 5 * time.Minute
