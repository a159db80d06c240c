package handlers

import (
	"net/http"
	"strconv"

	"github.com/saurabhwebdev/tailtally-sub003/internal/database"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"

	"github.com/gin-gonic/gin"
)

// Minimal owner/pet records so sales have someone to bill. The full customer
// management UI lives elsewhere; the engine only needs identity lookups.

// --- GET: /api/owners ---
func ListOwners(c *gin.Context) {
	var owners []models.Owner

	q := database.DB.Preload("Pets").Order("name")
	if search := c.Query("q"); search != "" {
		q = q.Where("name LIKE ? OR phone LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := q.Limit(100).Find(&owners).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch owners"})
		return
	}

	c.JSON(http.StatusOK, owners)
}

// --- GET: /api/owners/:id ---
func GetOwner(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner ID"})
		return
	}

	var owner models.Owner
	if err := database.DB.Preload("Pets").First(&owner, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Owner not found"})
		return
	}

	c.JSON(http.StatusOK, owner)
}

// --- POST: /api/owners ---
func AddOwner(c *gin.Context) {
	var owner models.Owner
	if err := c.ShouldBindJSON(&owner); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := database.DB.Create(&owner).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create owner"})
		return
	}

	c.JSON(http.StatusCreated, owner)
}

// --- POST: /api/owners/:id/pets ---
func AddPet(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid owner ID"})
		return
	}

	var owner models.Owner
	if err := database.DB.First(&owner, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Owner not found"})
		return
	}

	var pet models.Pet
	if err := c.ShouldBindJSON(&pet); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	pet.OwnerID = owner.ID

	if err := database.DB.Create(&pet).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create pet"})
		return
	}

	c.JSON(http.StatusCreated, pet)
}
