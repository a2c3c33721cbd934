package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every verification failure: malformed encoding,
// signature mismatch, or expiry in the past. Callers must not distinguish
// between them.
var ErrInvalidToken = errors.New("invalid or expired ticket token")

// Claims are the decoded contents of a ticket token.
type Claims struct {
	TicketID      uuid.UUID
	CustomerEmail string
	ExpiresAt     time.Time
}

// Codec issues and verifies signed, expiring ticket tokens. The token is a
// compact HS256 JWT carrying the ticket id and the customer email; the
// string is what ends up encoded in the QR code.
type Codec struct {
	secret []byte
}

// NewCodec fails when no secret is configured so a misconfigured process
// refuses to start instead of minting unverifiable tokens.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret is not configured")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Issue signs a token for the given ticket, valid until expiry.
func (c *Codec) Issue(ticketID uuid.UUID, customerEmail string, expiry time.Time) (string, error) {
	claims := jwt.MapClaims{
		"ticket_id":      ticketID.String(),
		"customer_email": customerEmail,
		"exp":            expiry.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: signing failed: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the embedded claims.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	rawID, ok := claims["ticket_id"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	ticketID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, _ := claims["customer_email"].(string)

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return nil, ErrInvalidToken
	}

	return &Claims{
		TicketID:      ticketID,
		CustomerEmail: email,
		ExpiresAt:     expiry.Time,
	}, nil
}
