package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	var received CheckoutParams
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Session{ID: "cs_123", URL: "https://pay.example/cs_123"})
	}))
	defer srv.Close()

	client := NewCheckoutClient("sk_test_123", srv.URL)
	session, err := client.CreateSession(context.Background(), CheckoutParams{
		Amount:        decimal.NewFromInt(25),
		Currency:      "eur",
		ProductName:   "Jazz Night",
		CustomerEmail: "alice@example.com",
		SuccessURL:    "https://front.example/payment/success",
		CancelURL:     "https://front.example/payment/cancel",
		Metadata:      map[string]string{"ticket_id": "t-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.ID)
	assert.Equal(t, "https://pay.example/cs_123", session.URL)
	assert.Equal(t, "Jazz Night", received.ProductName)
	assert.Equal(t, "t-1", received.Metadata["ticket_id"])
}

func TestCreateSessionRejectedByProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewCheckoutClient("sk_bad", srv.URL)
	_, err := client.CreateSession(context.Background(), CheckoutParams{
		Amount:   decimal.NewFromInt(10),
		Currency: "eur",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCreateSessionMissingSessionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"url":"https://pay.example/nowhere"}`))
	}))
	defer srv.Close()

	client := NewCheckoutClient("sk_test_123", srv.URL)
	_, err := client.CreateSession(context.Background(), CheckoutParams{
		Amount:   decimal.NewFromInt(10),
		Currency: "eur",
	})
	assert.Error(t, err)
}
