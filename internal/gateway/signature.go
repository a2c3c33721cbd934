package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignature covers a missing, malformed, stale or forged
// signature header. The webhook handler maps it to HTTP 400 with zero state
// mutation.
var ErrInvalidSignature = errors.New("gateway: invalid webhook signature")

// The provider signs `<timestamp>.<payload>` with the shared webhook
// secret and sends the result as `Gateway-Signature: t=<unix>,v1=<hex>`.

func computeSignature(timestamp string, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload produces a signature header for a payload. Used by tests and
// by the local webhook replay tooling.
func SignPayload(payload []byte, secret string, at time.Time) string {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, computeSignature(timestamp, payload, secret))
}

// VerifySignature checks the header against the payload using a
// constant-time comparison and rejects timestamps outside the tolerance
// window.
func VerifySignature(payload []byte, sigHeader, secret string, tolerance time.Duration) error {
	if sigHeader == "" || secret == "" {
		return ErrInvalidSignature
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			return ErrInvalidSignature
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}

	if timestamp == "" || len(signatures) == 0 {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := time.Since(time.Unix(unix, 0))
	if age > tolerance || age < -tolerance {
		return ErrInvalidSignature
	}

	expected := computeSignature(timestamp, payload, secret)
	for _, signature := range signatures {
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return nil
		}
	}
	return ErrInvalidSignature
}
