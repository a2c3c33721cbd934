package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/aveline/ticketing/internal/helpers"
	"github.com/aveline/ticketing/internal/models"
)

type LocationRequest struct {
	Name       string `json:"name" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postal_code" binding:"required"`
	Capacity   int    `json:"capacity"`
}

func CreateLocation(c *gin.Context) {
	var req LocationRequest
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

	location := models.Location{
		Name:       req.Name,
		Address:    req.Address,
		City:       req.City,
		PostalCode: req.PostalCode,
		Capacity:   req.Capacity,
	}

	if err := gormDB.Create(&location).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create location.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Location created successfully.",
		"location": location,
	})
}

func ListLocations(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var locations []models.Location
	if err := gormDB.Order("name ASC").Find(&locations).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving locations.")
		return
	}

	c.JSON(http.StatusOK, locations)
}

func DeleteLocation(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var location models.Location
	if err := gormDB.Where("id = ?", c.Param("id")).First(&location).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Location not found.")
		return
	}

	if err := gormDB.Delete(&location).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete location.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Location deleted successfully.",
	})
}
