package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/saurabhwebdev/tailtally-sub003/internal/billing"
	"github.com/saurabhwebdev/tailtally-sub003/internal/inventory"
	"github.com/saurabhwebdev/tailtally-sub003/internal/tax"
)

// respondError maps engine error kinds to HTTP statuses so every rejection
// carries a stable shape: {"error": "<message>"}.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	// Not found
	case errors.Is(err, inventory.ErrItemNotFound),
		errors.Is(err, billing.ErrSaleNotFound),
		errors.Is(err, billing.ErrInvoiceNotFound),
		errors.Is(err, billing.ErrOwnerNotFound),
		errors.Is(err, billing.ErrAppointmentNotFound):
		status = http.StatusNotFound

	// Conflicts: valid request, but the current state refuses it
	case errors.Is(err, inventory.ErrInsufficientStock),
		errors.Is(err, inventory.ErrInactiveItem),
		errors.Is(err, billing.ErrInvoiceAlreadyExists),
		errors.Is(err, billing.ErrExceedsDue),
		errors.Is(err, billing.ErrTargetCancelled),
		errors.Is(err, billing.ErrAlreadyDelivered),
		errors.Is(err, billing.ErrAlreadyPaid):
		status = http.StatusConflict

	// Validation: fix the input and retry
	case errors.Is(err, billing.ErrPetMismatch),
		errors.Is(err, billing.ErrEmptySale),
		errors.Is(err, billing.ErrInvalidAmount),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, inventory.ErrInvalidMovement),
		errors.Is(err, tax.ErrInvalidGSTRate),
		errors.Is(err, tax.ErrUnknownGSTType),
		errors.Is(err, tax.ErrUnknownDiscountType),
		errors.Is(err, tax.ErrInvalidQuantity),
		errors.Is(err, tax.ErrNegativeUnitPrice),
		errors.Is(err, tax.ErrDiscountExceedsAmount):
		status = http.StatusBadRequest
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

func actorFrom(c *gin.Context) string {
	if username, ok := c.Get("username"); ok {
		if s, ok := username.(string); ok && s != "" {
			return s
		}
	}
	return "system"
}
