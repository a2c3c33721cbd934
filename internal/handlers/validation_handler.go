package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aveline/ticketing/internal/helpers"
	"github.com/aveline/ticketing/internal/middleware"
	"github.com/aveline/ticketing/internal/validation"
)

type ValidationRequest struct {
	QRCode string `json:"qrCode"`
}

// ValidateTicket consumes a presented QR token: one successful scan per
// ticket, ever.
func ValidateTicket(c *gin.Context) {
	var req ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QRCode == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing QR code.")
		return
	}

	services := middleware.GetServices(c)
	if services == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return
	}

	summary, err := services.Validation.Redeem(c.Request.Context(), req.QRCode)
	if err != nil {
		var usedErr *validation.AlreadyUsedError
		var unpaidErr *validation.NotPaidError
		switch {
		case errors.Is(err, validation.ErrInvalidToken):
			helpers.RespondWithError(c, http.StatusUnauthorized, "QR code invalid or expired.")
		case errors.Is(err, validation.ErrTicketNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
		case errors.As(err, &usedErr):
			c.JSON(http.StatusConflict, gin.H{
				"error":  "This ticket has already been used.",
				"usedAt": usedErr.UsedAt.Format(time.RFC3339),
			})
		case errors.As(err, &unpaidErr):
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":  "This ticket is not paid.",
				"status": unpaidErr.Status,
			})
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to validate ticket.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Ticket validated successfully.",
		"ticket": gin.H{
			"id":            summary.TicketID,
			"customerName":  summary.CustomerName,
			"customerEmail": summary.CustomerEmail,
			"eventTitle":    summary.EventTitle,
			"usedAt":        summary.UsedAt,
		},
	})
}

// CheckTicket inspects a QR token without consuming it.
func CheckTicket(c *gin.Context) {
	var req ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.QRCode == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Missing QR code.")
		return
	}

	services := middleware.GetServices(c)
	if services == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return
	}

	summary, err := services.Validation.Inspect(c.Request.Context(), req.QRCode)
	if err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalidToken):
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "QR code invalid or expired."})
		case errors.Is(err, validation.ErrTicketNotFound):
			c.JSON(http.StatusOK, gin.H{"valid": false, "error": "Ticket not found."})
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to check ticket.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"ticket": gin.H{
			"id":            summary.TicketID,
			"customerName":  summary.CustomerName,
			"eventTitle":    summary.EventTitle,
			"isUsed":        summary.IsUsed,
			"usedAt":        summary.UsedAt,
			"paymentStatus": summary.PaymentStatus,
		},
	})
}
