package handlers

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/saurabhwebdev/tailtally-sub003/internal/database"
	"github.com/saurabhwebdev/tailtally-sub003/internal/inventory"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
	"github.com/saurabhwebdev/tailtally-sub003/internal/tax"

	"github.com/gin-gonic/gin"
)

// InventoryHandler exposes the item catalog and the stock ledger. Quantity
// never changes through the generic update endpoint - only through the
// ledger operations, so every change leaves a movement behind.
type InventoryHandler struct {
	ledger *inventory.Ledger
}

func NewInventoryHandler(ledger *inventory.Ledger) *InventoryHandler {
	return &InventoryHandler{ledger: ledger}
}

// --- GET: List items ---
func (h *InventoryHandler) ListItems(c *gin.Context) {
	var items []models.InventoryItem

	q := database.DB
	if c.Query("active") == "true" {
		q = q.Where("is_active = ?", true)
	}
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}

	if err := q.Order("name").Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch items"})
		return
	}

	c.JSON(http.StatusOK, items)
}

// --- POST: Add a new item ---
func (h *InventoryHandler) AddItem(c *gin.Context) {
	var item models.InventoryItem

	// 1. Parse JSON Input
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// 2. The GST type is a closed enum - reject junk at the door
	if item.GSTType == "" {
		item.GSTType = string(tax.GSTTypeExempt)
	}
	if _, err := tax.ParseGSTType(item.GSTType); err != nil {
		respondError(c, err)
		return
	}
	if item.GSTRate < 0 || item.GSTRate > 100 {
		respondError(c, tax.ErrInvalidGSTRate)
		return
	}
	if item.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity cannot be negative"})
		return
	}
	item.IsActive = true

	// 3. Save to DB
	if err := database.DB.Create(&item).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to create item (duplicate SKU?)"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

// --- PUT: Update item details (price, category, GST profile...) ---
func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	var item models.InventoryItem
	if err := database.DB.First(&item, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	// We use a map so we only update what was sent (partial update)
	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// Stock never moves through this endpoint - that's what the ledger is for
	delete(updateData, "quantity")
	delete(updateData, "total_sold")

	if raw, ok := updateData["gst_type"]; ok {
		s, _ := raw.(string)
		if _, err := tax.ParseGSTType(s); err != nil {
			respondError(c, err)
			return
		}
	}

	if err := database.DB.Model(&item).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item updated successfully", "item": item})
}

// --- DELETE: Deactivate an item ---
// Items with movement history are only soft-deactivated, never removed.
func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	if err := h.ledger.Deactivate(uint(id), true); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Item deactivated"})
}

type AdjustStockRequest struct {
	Delta int    `json:"delta" binding:"required"`
	Type  string `json:"type" binding:"required"` // 'purchase' or 'adjustment'
	Note  string `json:"note"`
}

// --- POST: /api/items/:id/adjust-stock ---
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	// Sale movements belong to the sale engine so they always reference a sale
	if req.Type == models.MovementTypeSale {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Sale movements are created by checkout, not manually"})
		return
	}

	item, err := h.ledger.AdjustStock(uint(id), req.Delta, req.Type, actorFrom(c), req.Note, "")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

type SellToPetRequest struct {
	OwnerID  uint   `json:"owner_id" binding:"required"`
	PetID    uint   `json:"pet_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required"`
	Note     string `json:"note"`
}

// --- POST: /api/items/:id/sell-to-pet ---
// Records stock used directly for a pet (e.g. during grooming) without
// going through a full checkout.
func (h *InventoryHandler) SellToPet(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	var req SellToPetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	item, err := h.ledger.SellToPet(uint(id), req.PetID, req.OwnerID, req.Quantity, actorFrom(c), req.Note, "")
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// --- GET: /api/items/:id/movements ---
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item ID"})
		return
	}

	movements, err := h.ledger.Movements(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, movements)
}

// --- UPLOAD: Item photos ---
func (h *InventoryHandler) UploadImage(c *gin.Context) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	// 2. Generate a safe unique filename, e.g. "167890123_kibble.jpg"
	filename := fmt.Sprintf("%d_%s", time.Now().Unix(), file.Filename)
	filepath := "./uploads/" + filename

	// 3. Save the file to the 'uploads' folder
	if err := c.SaveUploadedFile(file, filepath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"url":     baseURL + "/uploads/" + filename,
	})
}
