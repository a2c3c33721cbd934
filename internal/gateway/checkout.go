package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutParams describes one hosted checkout page.
type CheckoutParams struct {
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	ProductName   string            `json:"product_name"`
	Description   string            `json:"description,omitempty"`
	ImageURL      string            `json:"image_url,omitempty"`
	CustomerEmail string            `json:"customer_email"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Session is the provider's handle on a pending payment. The id is what
// later webhook events are matched against.
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutClient creates hosted checkout sessions over the provider's HTTP
// API.
type CheckoutClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewCheckoutClient(apiKey, baseURL string) *CheckoutClient {
	return &CheckoutClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateSession registers a checkout session and returns its id and hosted
// payment page URL.
func (c *CheckoutClient) CreateSession(ctx context.Context, params CheckoutParams) (*Session, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("gateway: encoding checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: building checkout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gateway: checkout rejected with status %d: %s", resp.StatusCode, snippet)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("gateway: decoding checkout response: %w", err)
	}
	if session.ID == "" {
		return nil, fmt.Errorf("gateway: checkout response missing session id")
	}
	return &session, nil
}
