package handlers

import (
	"net/http"
	"strconv"

	"github.com/saurabhwebdev/tailtally-sub003/internal/billing"
	"github.com/saurabhwebdev/tailtally-sub003/internal/database"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	engine *billing.InvoiceEngine
}

func NewInvoiceHandler(engine *billing.InvoiceEngine) *InvoiceHandler {
	return &InvoiceHandler{engine: engine}
}

// --- POST: /api/invoices ---
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	var input billing.GenerateInvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	invoice, err := h.engine.GenerateInvoice(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// --- GET: /api/invoices ---
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var invoices []models.Invoice

	q := database.DB.Order("issue_date DESC")
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	if err := q.Limit(100).Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invoices"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// --- GET: /api/invoices/:id ---
// Payment fields on the response are projected from the sale record, which
// is the source of truth once an invoice exists.
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return
	}

	invoice, err := h.engine.GetInvoice(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// --- POST: /api/invoices/:id/cancel ---
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return
	}

	invoice, err := h.engine.CancelInvoice(uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice cancelled", "invoice": invoice})
}
