package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

func TestVerifySignatureAcceptsFreshSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed"}`)
	header := SignPayload(payload, testWebhookSecret, time.Now())

	err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance)
	assert.NoError(t, err)
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, "whsec_other", time.Now())

	err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignatureRejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, testWebhookSecret, time.Now())

	err := VerifySignature([]byte(`{"id":"evt_2"}`), header, testWebhookSecret, DefaultTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	header := SignPayload(payload, testWebhookSecret, time.Now().Add(-10*time.Minute))

	err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifySignatureRejectsMalformedHeaders(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	for _, header := range []string{
		"",
		"t=123",
		"v1=deadbeef",
		"t=notanumber,v1=deadbeef",
		"garbage",
	} {
		err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
	}
}

func TestConstructEventVerifiesBeforeDecoding(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_123","metadata":{"ticket_id":"abc"}}}}`)

	_, err := ConstructEvent(payload, "t=1,v1=bogus", testWebhookSecret, false)
	require.ErrorIs(t, err, ErrInvalidSignature)

	header := SignPayload(payload, testWebhookSecret, time.Now())
	event, err := ConstructEvent(payload, header, testWebhookSecret, false)
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	assert.Equal(t, "cs_123", event.Data.Object.ID)
	assert.Equal(t, "abc", event.Data.Object.Metadata["ticket_id"])
}

func TestConstructEventSkipsVerificationOnlyWhenAsked(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_1"}}}`)

	event, err := ConstructEvent(payload, "", "", true)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, event.Type)
}

func TestParseEventRejectsBadPayloads(t *testing.T) {
	_, err := ParseEvent([]byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseEvent([]byte(`{"id":"evt_1"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
