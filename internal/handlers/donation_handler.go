package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aveline/ticketing/internal/gateway"
	"github.com/aveline/ticketing/internal/helpers"
	"github.com/aveline/ticketing/internal/middleware"
	"github.com/aveline/ticketing/internal/models"
)

type DonationRequest struct {
	DonorName  string          `json:"donor_name" binding:"required"`
	DonorEmail string          `json:"donor_email" binding:"required,email"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
	Message    *string         `json:"message"`
}

// CreateDonation persists a pending donation and opens a checkout session
// for it. The session id is what the later webhook is matched against.
func CreateDonation(c *gin.Context) {
	var req DonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		helpers.RespondWithError(c, http.StatusBadRequest, "The donation amount must be positive.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	services := middleware.GetServices(c)
	if services == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return
	}

	donation := models.Donation{
		DonorName:  req.DonorName,
		DonorEmail: req.DonorEmail,
		Amount:     req.Amount,
		Message:    req.Message,
		Status:     models.PaymentPending,
	}

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&donation).Error; err != nil {
			return err
		}

		session, err := services.Checkout.CreateSession(c.Request.Context(), gateway.CheckoutParams{
			Amount:        req.Amount,
			Currency:      "eur",
			ProductName:   "Donation",
			CustomerEmail: req.DonorEmail,
			SuccessURL:    services.Config.FrontendURL + "/donations/success",
			CancelURL:     services.Config.FrontendURL + "/donations/cancel",
			Metadata:      map[string]string{"donation_id": donation.ID.String()},
		})
		if err != nil {
			return err
		}

		donation.CheckoutSessionID = &session.ID
		donation.CheckoutURL = &session.URL
		return tx.Save(&donation).Error
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create donation.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Donation created successfully.",
		"donation":     donation,
		"checkout_url": donation.CheckoutURL,
	})
}

func ListDonations(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var donations []models.Donation
	if err := gormDB.Order("created_at DESC").Find(&donations).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving donations.")
		return
	}

	c.JSON(http.StatusOK, donations)
}
