package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/aveline/ticketing/config"
	"github.com/aveline/ticketing/internal/gateway"
	"github.com/aveline/ticketing/internal/models"
	"github.com/aveline/ticketing/internal/server"
)

const testJWTSecret = "jwt-test-secret"

// fixture wires the real router against an in-memory database and a fake
// payment gateway.
type fixture struct {
	db       *gorm.DB
	router   *gin.Engine
	cfg      *config.Config
	sessions int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("JWT_SECRET", testJWTSecret)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	f := &fixture{db: db}

	gatewaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.sessions++
		id := fmt.Sprintf("cs_test_%d", f.sessions)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(gateway.Session{ID: id, URL: "https://pay.example/" + id})
	}))
	t.Cleanup(gatewaySrv.Close)

	f.cfg = &config.Config{
		Environment:       "development",
		FrontendURL:       "https://front.example",
		QRTokenSecret:     "test-secret",
		WebhookSecret:     "whsec_test",
		PaymentAPIKey:     "sk_test",
		PaymentAPIBaseURL: gatewaySrv.URL,
	}

	services, err := server.BuildServices(f.cfg, db, zap.NewNop())
	require.NoError(t, err)

	f.router = gin.New()
	server.SetupRoutes(f.router, db, services)
	return f
}

func (f *fixture) bearer(t *testing.T, email, role string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": uuid.New().String(),
		"email":   email,
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func (f *fixture) request(t *testing.T, method, path string, body interface{}, auth string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// postWebhook delivers a raw payload with a signature header computed from
// the configured webhook secret.
func (f *fixture) postWebhook(t *testing.T, payload []byte, sigHeader string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if sigHeader != "" {
		req.Header.Set("Gateway-Signature", sigHeader)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) createEvent(t *testing.T, total int) *models.Event {
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
	require.NoError(t, f.db.Create(event).Error)
	return event
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func checkoutCompletedPayload(sessionID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"%s","payment_intent":"pi_123"}}}`,
		sessionID))
}
