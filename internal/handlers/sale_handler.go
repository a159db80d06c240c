package handlers

import (
	"net/http"
	"strconv"

	"github.com/saurabhwebdev/tailtally-sub003/internal/billing"
	"github.com/saurabhwebdev/tailtally-sub003/internal/database"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"

	"github.com/gin-gonic/gin"
)

// SaleHandler fronts the sale engine: checkout, lookup, delivery, cancellation
// and the appointment completion hook.
type SaleHandler struct {
	engine *billing.SaleEngine
}

func NewSaleHandler(engine *billing.SaleEngine) *SaleHandler {
	return &SaleHandler{engine: engine}
}

// --- POST: /api/sales ---
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var input billing.CreateSaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	input.UserID = c.MustGet("userID").(uint)
	input.Actor = actorFrom(c)

	result, err := h.engine.CreateSale(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// --- GET: /api/sales ---
func (h *SaleHandler) ListSales(c *gin.Context) {
	var sales []models.Sale

	q := database.DB.Preload("Items").Order("sale_time DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if ownerID := c.Query("owner_id"); ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}

	if err := q.Limit(100).Find(&sales).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales"})
		return
	}

	c.JSON(http.StatusOK, sales)
}

// --- GET: /api/sales/:id ---
func (h *SaleHandler) GetSale(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sale ID"})
		return
	}

	var sale models.Sale
	if err := database.DB.Preload("Items").First(&sale, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sale not found"})
		return
	}

	c.JSON(http.StatusOK, sale)
}

// --- POST: /api/sales/:id/cancel ---
func (h *SaleHandler) CancelSale(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sale ID"})
		return
	}

	sale, err := h.engine.CancelSale(uint(id), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sale cancelled, stock restored", "sale": sale})
}

// --- POST: /api/sales/:id/deliver ---
func (h *SaleHandler) MarkDelivered(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid sale ID"})
		return
	}

	sale, err := h.engine.MarkDelivered(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, sale)
}

type CompleteAppointmentRequest struct {
	Items   []billing.SaleItemInput `json:"items"`
	Payment *billing.PaymentInput   `json:"payment"`
	Notes   string                  `json:"notes"`
}

// --- POST: /api/appointments/:id/complete ---
// Finishes the appointment; if items were used, a sale is created for them
// with the appointment's owner and pet.
func (h *SaleHandler) CompleteAppointment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid appointment ID"})
		return
	}

	var req CompleteAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID := c.MustGet("userID").(uint)
	appt, sale, err := h.engine.CompleteAppointmentWithSale(uint(id), userID, actorFrom(c), req.Items, req.Payment, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"appointment": appt, "sale": sale})
}
