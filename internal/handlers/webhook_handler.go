package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aveline/ticketing/internal/gateway"
	"github.com/aveline/ticketing/internal/helpers"
	"github.com/aveline/ticketing/internal/middleware"
)

// SignatureHeader carries the provider's HMAC over the raw payload.
const SignatureHeader = "Gateway-Signature"

// HandlePaymentWebhook receives gateway events. Authenticity failures get
// a 400 with zero state change; recognized-or-ignored events get a 200 so
// the gateway stops retrying.
func HandlePaymentWebhook(c *gin.Context) {
	services := middleware.GetServices(c)
	if services == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}

	event, err := gateway.ConstructEvent(
		payload,
		c.GetHeader(SignatureHeader),
		services.Config.WebhookSecret,
		services.Config.IsTest(),
	)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			c.String(http.StatusBadRequest, "Invalid signature")
			return
		}
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}

	if err := services.Reconciler.HandleEvent(c.Request.Context(), event); err != nil {
		// Internal fault: non-2xx makes the gateway redeliver later.
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to process event.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
