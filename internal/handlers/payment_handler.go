package handlers

import (
	"net/http"

	"github.com/saurabhwebdev/tailtally-sub003/internal/billing"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	ledger *billing.PaymentLedger
}

func NewPaymentHandler(ledger *billing.PaymentLedger) *PaymentHandler {
	return &PaymentHandler{ledger: ledger}
}

// --- POST: /api/payments ---
// Records a payment against a sale or an invoice and returns the updated
// payment status.
func (h *PaymentHandler) AddPayment(c *gin.Context) {
	var input billing.AddPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	status, err := h.ledger.AddPayment(input)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
