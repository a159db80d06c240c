package models

import (
	"time"
)

// PaymentInfo is embedded in Sale and Invoice. For a sale without an invoice
// the totals it reconciles against are the sale's grand total; once an
// invoice exists the payable amount is the invoice's rounded final amount and
// the sale's copy is the source of truth (the invoice mirrors it).
type PaymentInfo struct {
	Method        string     `gorm:"size:20" json:"method"` // 'cash', 'card', 'upi', ...
	Status        string     `gorm:"size:10" json:"status"` // 'pending', 'partial', 'paid'
	PaidAmount    float64    `json:"paid_amount"`
	DueAmount     float64    `json:"due_amount"`
	TransactionID string     `gorm:"size:64" json:"transaction_id"`
	PaidAt        *time.Time `json:"paid_at"`
}

// DeriveStatus recomputes the payment status from the paid amount and the
// payable total. paid >= total -> paid; 0 < paid < total -> partial; else
// pending. A zero total (fully discounted sale) has nothing owed and is paid.
func (p *PaymentInfo) DeriveStatus(total float64) string {
	switch {
	case total <= 0:
		return PaymentStatusPaid
	case p.PaidAmount >= total:
		return PaymentStatusPaid
	case p.PaidAmount > 0:
		return PaymentStatusPartial
	default:
		return PaymentStatusPending
	}
}

// Sale - one committed transaction. Created atomically with its stock
// decrement; cancellation reverses the decrement. Never deleted.
type Sale struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	SaleNumber string `gorm:"uniqueIndex;size:20" json:"sale_number"` // SAL-YYYYMM-NNNN
	OwnerID    uint   `gorm:"index" json:"owner_id"`
	PetID      *uint  `json:"pet_id"`
	UserID     uint   `json:"user_id"` // staff member who rang it up

	Items []SaleLineItem `gorm:"foreignKey:SaleID" json:"items"`

	Subtotal      float64 `json:"subtotal"`
	TotalDiscount float64 `json:"total_discount"`
	TotalTaxable  float64 `json:"total_taxable"`
	TotalGST      float64 `json:"total_gst"`
	GrandTotal    float64 `json:"grand_total"` // invariant: sum of item totals

	Payment PaymentInfo `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`

	Status    string    `gorm:"size:20" json:"status"` // 'confirmed', 'delivered', 'cancelled'
	InvoiceID *uint     `json:"invoice_id"`            // at most one invoice per sale
	Notes     string    `json:"notes"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	SaleTime  time.Time `json:"sale_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaleLineItem snapshots the item at the moment of sale so later catalog
// edits never change historical sales.
type SaleLineItem struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	SaleID uint `gorm:"index" json:"sale_id"`
	ItemID uint `json:"item_id"`

	Name          string  `gorm:"size:150" json:"name"`
	SKU           string  `gorm:"size:64" json:"sku"`
	HSNCode       string  `gorm:"size:20" json:"hsn_code"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	Discount      float64 `json:"discount"`
	DiscountType  string  `gorm:"size:10" json:"discount_type"` // 'percentage', 'fixed'
	GSTApplicable bool    `json:"gst_applicable"`
	GSTRate       float64 `json:"gst_rate"`
	GSTType       string  `gorm:"size:20" json:"gst_type"`
	CessRate      float64 `json:"cess_rate"`

	Subtotal       float64 `json:"subtotal"`        // quantity * unit price
	DiscountAmount float64 `json:"discount_amount"`
	TaxableAmount  float64 `json:"taxable_amount"` // subtotal - discount
	GSTAmount      float64 `json:"gst_amount"`     // tax incl. cess
	Total          float64 `json:"total"`          // taxable + gst
}

const (
	SaleStatusConfirmed = "confirmed"
	SaleStatusDelivered = "delivered"
	SaleStatusCancelled = "cancelled"

	PaymentStatusPending = "pending"
	PaymentStatusPartial = "partial"
	PaymentStatusPaid    = "paid"
)
