package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/aveline/ticketing/internal/helpers"
	"github.com/aveline/ticketing/internal/inventory"
	"github.com/aveline/ticketing/internal/issuance"
	"github.com/aveline/ticketing/internal/middleware"
	"github.com/aveline/ticketing/internal/models"
)

type TicketRequest struct {
	EventID       *uuid.UUID `json:"event_id"`
	FormationID   *uuid.UUID `json:"formation_id"`
	CustomerName  string     `json:"customer_name" binding:"required"`
	CustomerEmail string     `json:"customer_email" binding:"required,email"`
}

func CreateTicket(c *gin.Context) {
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	services := middleware.GetServices(c)
	if services == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return
	}

	email, _ := c.Get("user_email")
	role, _ := c.Get("user_role")
	principal := issuance.Principal{}
	if v, ok := email.(string); ok {
		principal.Email = v
	}
	if v, ok := role.(string); ok {
		principal.Role = v
	}

	ticket, err := services.Issuance.Create(c.Request.Context(), issuance.CreateRequest{
		EventID:       req.EventID,
		FormationID:   req.FormationID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		RequestedBy:   principal,
	})
	if err != nil {
		var capacityErr *inventory.InsufficientCapacityError
		switch {
		case errors.Is(err, issuance.ErrXorViolation):
			helpers.RespondWithError(c, http.StatusBadRequest, "A ticket must target either an event or a formation, but not both.")
		case errors.Is(err, issuance.ErrOwnershipViolation):
			helpers.RespondWithError(c, http.StatusForbidden, "You can only buy tickets for yourself.")
		case errors.Is(err, issuance.ErrPurchasableNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Event or formation not found.")
		case errors.As(err, &capacityErr):
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Sold out.",
				"available": capacityErr.Available,
			})
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create ticket.")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Ticket created successfully.",
		"ticket":       ticket,
		"checkout_url": ticket.CheckoutURL,
	})
}

func GetTicket(c *gin.Context) {
	ticketID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var ticket models.Ticket
	if err := gormDB.Preload("Event").Preload("Formation").Where("id = ?", ticketID).First(&ticket).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving ticket.")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

// GetTicketQR renders the signed token as a PNG for paid tickets.
func GetTicketQR(c *gin.Context) {
	ticketID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var ticket models.Ticket
	if err := gormDB.Where("id = ?", ticketID).First(&ticket).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
		return
	}

	if ticket.PaymentStatus != models.PaymentPaid || ticket.QRCode == nil {
		helpers.RespondWithError(c, http.StatusPaymentRequired, "Ticket is not paid yet.")
		return
	}

	qrImage, err := qrcode.Encode(*ticket.QRCode, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}

// ListTicketsByEvent returns the paid tickets of one event for the gate
// staff.
func ListTicketsByEvent(c *gin.Context) {
	eventID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var tickets []models.Ticket
	if err := gormDB.Where("event_id = ? AND payment_status = ?", eventID, models.PaymentPaid).
		Order("purchased_at DESC").Find(&tickets).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving tickets.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   len(tickets),
		"tickets": tickets,
	})
}

// EventTicketStats summarizes sales and attendance for one event.
func EventTicketStats(c *gin.Context) {
	eventID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var tickets []models.Ticket
	if err := gormDB.Where("event_id = ? AND payment_status = ?", eventID, models.PaymentPaid).
		Find(&tickets).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving tickets.")
		return
	}

	used := 0
	revenue := decimal.Zero
	for _, ticket := range tickets {
		if ticket.IsUsed() {
			used++
		}
		revenue = revenue.Add(ticket.TotalPrice)
	}

	average := decimal.Zero
	if len(tickets) > 0 {
		average = revenue.DivRound(decimal.NewFromInt(int64(len(tickets))), 2)
	}

	c.JSON(http.StatusOK, gin.H{
		"totalSold":          len(tickets),
		"totalUsed":          used,
		"remainingToUse":     len(tickets) - used,
		"totalRevenue":       revenue.StringFixed(2),
		"averageTicketPrice": average.StringFixed(2),
	})
}
