package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
)

// PaymentLedger tracks payments against sales and invoices. The sale's
// payment record is the single source of truth: paying an invoice resolves
// to its sale, applies there, and the invoice's copy is refreshed in the
// same transaction, so the two views can never drift apart.
type PaymentLedger struct {
	db *gorm.DB
}

func NewPaymentLedger(db *gorm.DB) *PaymentLedger {
	return &PaymentLedger{db: db}
}

const (
	TargetSale    = "sale"
	TargetInvoice = "invoice"
)

type AddPaymentInput struct {
	TargetType    string  `json:"target_type" binding:"required"` // 'sale' or 'invoice'
	TargetID      uint    `json:"target_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
	Method        string  `json:"method"`
	TransactionID string  `json:"transaction_id"`
}

// PaymentStatus is the updated view returned to the caller.
type PaymentStatus struct {
	SaleNumber    string  `json:"sale_number"`
	InvoiceNumber string  `json:"invoice_number,omitempty"`
	PaidAmount    float64 `json:"paid_amount"`
	DueAmount     float64 `json:"due_amount"`
	Status        string  `json:"status"`
}

// AddPayment records a payment. The payable total is the invoice's rounded
// final amount when one exists, otherwise the sale's grand total; paid never
// exceeds it and paid + due always equals it.
func (e *PaymentLedger) AddPayment(in AddPaymentInput) (*PaymentStatus, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var status PaymentStatus
	err := e.db.Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		var invoice *models.Invoice

		switch in.TargetType {
		case TargetInvoice:
			var inv models.Invoice
			if err := tx.First(&inv, in.TargetID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvoiceNotFound
				}
				return err
			}
			if inv.Status == models.InvoiceStatusCancelled {
				return ErrTargetCancelled
			}
			invoice = &inv
			if err := tx.First(&sale, inv.SaleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSaleNotFound
				}
				return err
			}
		case TargetSale:
			if err := tx.First(&sale, in.TargetID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSaleNotFound
				}
				return err
			}
			if sale.InvoiceID != nil {
				var inv models.Invoice
				if err := tx.First(&inv, *sale.InvoiceID).Error; err == nil && inv.Status != models.InvoiceStatusCancelled {
					invoice = &inv
				}
			}
		default:
			return fmt.Errorf("unknown payment target %q", in.TargetType)
		}

		if sale.Status == models.SaleStatusCancelled {
			return ErrTargetCancelled
		}

		total := sale.GrandTotal
		if invoice != nil {
			total = invoice.FinalAmount
		}

		paid := decimal.NewFromFloat(sale.Payment.PaidAmount)
		due := decimal.NewFromFloat(total).Sub(paid)
		amount := decimal.NewFromFloat(in.Amount)
		if amount.GreaterThan(due) {
			return fmt.Errorf("%w: due %.2f", ErrExceedsDue, mustFloat(due))
		}

		paid = paid.Add(amount).Round(2)
		due = due.Sub(amount).Round(2)

		now := time.Now()
		sale.Payment.PaidAmount = mustFloat(paid)
		sale.Payment.DueAmount = mustFloat(due)
		sale.Payment.Status = sale.Payment.DeriveStatus(total)
		sale.Payment.PaidAt = &now
		if in.Method != "" {
			sale.Payment.Method = in.Method
		}
		if in.TransactionID != "" {
			sale.Payment.TransactionID = in.TransactionID
		} else {
			sale.Payment.TransactionID = uuid.NewString()
		}

		if err := tx.Model(&sale).Updates(map[string]interface{}{
			"payment_paid_amount":    sale.Payment.PaidAmount,
			"payment_due_amount":     sale.Payment.DueAmount,
			"payment_status":         sale.Payment.Status,
			"payment_method":         sale.Payment.Method,
			"payment_transaction_id": sale.Payment.TransactionID,
			"payment_paid_at":        now,
		}).Error; err != nil {
			return err
		}

		status = PaymentStatus{
			SaleNumber: sale.SaleNumber,
			PaidAmount: sale.Payment.PaidAmount,
			DueAmount:  sale.Payment.DueAmount,
			Status:     sale.Payment.Status,
		}

		// Refresh the invoice mirror inside the same transaction.
		if invoice != nil {
			projectPayment(invoice, &sale)
			if err := tx.Model(invoice).Updates(map[string]interface{}{
				"payment_paid_amount":    invoice.Payment.PaidAmount,
				"payment_due_amount":     invoice.Payment.DueAmount,
				"payment_status":         invoice.Payment.Status,
				"payment_method":         invoice.Payment.Method,
				"payment_transaction_id": invoice.Payment.TransactionID,
				"payment_paid_at":        now,
			}).Error; err != nil {
				return err
			}
			status.InvoiceNumber = invoice.InvoiceNumber
			status.DueAmount = invoice.Payment.DueAmount
			status.Status = invoice.Payment.Status
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// projectPayment recomputes the invoice's payment view from the sale record.
// Due amounts on the invoice reconcile against the rounded final amount.
func projectPayment(invoice *models.Invoice, sale *models.Sale) {
	paid := decimal.NewFromFloat(sale.Payment.PaidAmount)
	final := decimal.NewFromFloat(invoice.FinalAmount)
	due := final.Sub(paid).Round(2)
	if due.IsNegative() {
		due = decimal.Zero
	}

	invoice.Payment.Method = sale.Payment.Method
	invoice.Payment.PaidAmount = mustFloat(paid)
	invoice.Payment.DueAmount = mustFloat(due)
	invoice.Payment.TransactionID = sale.Payment.TransactionID
	invoice.Payment.PaidAt = sale.Payment.PaidAt
	invoice.Payment.Status = invoice.Payment.DeriveStatus(invoice.FinalAmount)
}

func mustFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
