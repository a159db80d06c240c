package billing

import "errors"

// Stable error kinds for the engine boundary. Handlers map these to HTTP
// statuses; callers branch with errors.Is.
var (
	ErrOwnerNotFound        = errors.New("owner not found")
	ErrPetMismatch          = errors.New("pet does not belong to this owner")
	ErrEmptySale            = errors.New("sale has no items")
	ErrSaleNotFound         = errors.New("sale not found")
	ErrAlreadyDelivered     = errors.New("delivered sales cannot be cancelled")
	ErrInvoiceAlreadyExists = errors.New("sale already has an invoice")
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrAlreadyPaid          = errors.New("paid invoices cannot be cancelled")
	ErrExceedsDue           = errors.New("payment exceeds due amount")
	ErrTargetCancelled      = errors.New("target is cancelled")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)
