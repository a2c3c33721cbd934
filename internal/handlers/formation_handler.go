package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/aveline/ticketing/internal/helpers"
	"github.com/aveline/ticketing/internal/inventory"
	"github.com/aveline/ticketing/internal/models"
)

type FormationRequest struct {
	Title           string          `json:"title" binding:"required"`
	Description     string          `json:"description" binding:"required"`
	ImageURL        string          `json:"image_url" binding:"required,url"`
	StartDate       time.Time       `json:"start_date" binding:"required"`
	Duration        string          `json:"duration" binding:"required"`
	Instructor      string          `json:"instructor" binding:"required"`
	Price           decimal.Decimal `json:"price"`
	MaxParticipants int             `json:"max_participants" binding:"required,min=1"`
	LocationID      *uuid.UUID      `json:"location_id"`
}

func CreateFormation(c *gin.Context) {
	var req FormationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if req.Price.IsNegative() {
		helpers.RespondWithError(c, http.StatusBadRequest, "The price must be positive or zero.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	formation := models.Formation{
		Title:           req.Title,
		Description:     req.Description,
		ImageURL:        req.ImageURL,
		StartDate:       req.StartDate,
		Duration:        req.Duration,
		Instructor:      req.Instructor,
		Price:           req.Price,
		MaxParticipants: req.MaxParticipants,
		LocationID:      req.LocationID,
	}

	if err := gormDB.Create(&formation).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create formation.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Formation created successfully.",
		"formation": formation,
	})
}

func ListFormations(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var formations []models.Formation
	if err := gormDB.Preload("Location").Order("start_date ASC").Find(&formations).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving formations.")
		return
	}

	c.JSON(http.StatusOK, formations)
}

// GetFormation includes the derived number of available places: paid
// tickets take a place, the rest of the capacity stays open.
func GetFormation(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var formation models.Formation
	if err := gormDB.Preload("Location").Preload("Categories").
		Where("id = ?", c.Param("id")).First(&formation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Formation not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving formation.")
		return
	}

	available, err := inventory.NewLedger().AvailableForFormation(gormDB, formation.ID)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error computing availability.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"formation":        formation,
		"available_places": available,
	})
}

func UpdateFormation(c *gin.Context) {
	var req FormationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var formation models.Formation
	if err := gormDB.Where("id = ?", c.Param("id")).First(&formation).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Formation not found.")
		return
	}

	formation.Title = req.Title
	formation.Description = req.Description
	formation.ImageURL = req.ImageURL
	formation.StartDate = req.StartDate
	formation.Duration = req.Duration
	formation.Instructor = req.Instructor
	formation.Price = req.Price
	formation.MaxParticipants = req.MaxParticipants
	formation.LocationID = req.LocationID

	if err := gormDB.Save(&formation).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update formation.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Formation updated successfully.",
		"formation": formation,
	})
}

func DeleteFormation(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var formation models.Formation
	if err := gormDB.Where("id = ?", c.Param("id")).First(&formation).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Formation not found.")
		return
	}

	var ticketCount int64
	gormDB.Model(&models.Ticket{}).Where("formation_id = ?", formation.ID).Count(&ticketCount)
	if ticketCount > 0 {
		helpers.RespondWithError(c, http.StatusConflict, "Cannot delete a formation that has tickets.")
		return
	}

	if err := gormDB.Delete(&formation).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete formation.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Formation deleted successfully.",
	})
}
