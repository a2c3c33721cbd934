package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aveline/ticketing/internal/helpers"
	"github.com/aveline/ticketing/internal/middleware"
	"github.com/aveline/ticketing/internal/models"
	"github.com/aveline/ticketing/internal/refunds"
)

type RefundRequestInput struct {
	TicketID      uuid.UUID `json:"ticket_id" binding:"required"`
	CustomerName  string    `json:"customer_name" binding:"required"`
	CustomerEmail string    `json:"customer_email" binding:"required,email"`
	Reason        string    `json:"reason" binding:"required"`
}

func CreateRefundRequest(c *gin.Context) {
	var req RefundRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	services := middleware.GetServices(c)
	if services == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return
	}

	var userID *uuid.UUID
	if raw, exists := c.Get("user_id"); exists {
		if id, ok := raw.(uuid.UUID); ok {
			userID = &id
		}
	}

	request, err := services.Refunds.Create(c.Request.Context(), refunds.CreateRequest{
		TicketID:      req.TicketID,
		UserID:        userID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Reason:        req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, refunds.ErrTicketNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Ticket not found.")
		case errors.Is(err, refunds.ErrDuplicateRequest):
			helpers.RespondWithError(c, http.StatusConflict, "A refund request for this ticket is already pending or approved.")
		case errors.Is(err, refunds.ErrAlreadyRefunded):
			helpers.RespondWithError(c, http.StatusConflict, "This ticket has already been refunded.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create refund request.")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Refund request created successfully.",
		"refund_request": request,
	})
}

type RefundProcessInput struct {
	Status          string  `json:"status" binding:"required"`
	GatewayRefundID *string `json:"gateway_refund_id"`
}

// ProcessRefundRequest moves a request out of pending. Admin only.
func ProcessRefundRequest(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid refund request ID.")
		return
	}

	var req RefundProcessInput
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	services := middleware.GetServices(c)
	if services == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return
	}

	request, err := services.Refunds.Process(c.Request.Context(), requestID, req.Status, req.GatewayRefundID)
	if err != nil {
		switch {
		case errors.Is(err, refunds.ErrInvalidTransition):
			helpers.RespondWithError(c, http.StatusBadRequest, "Status must be approved, rejected or processed.")
		case errors.Is(err, gorm.ErrRecordNotFound):
			helpers.RespondWithError(c, http.StatusNotFound, "Refund request not found.")
		default:
			helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to process refund request.")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Refund request updated successfully.",
		"refund_request": request,
	})
}

func ListRefundRequests(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var requests []models.RefundRequest
	if err := gormDB.Preload("Ticket").Order("created_at DESC").Find(&requests).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving refund requests.")
		return
	}

	c.JSON(http.StatusOK, requests)
}
