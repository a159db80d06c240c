package models

import (
	"time"
)

// Invoice - the billing document derived from exactly one Sale. The unique
// index on SaleID is what ultimately enforces the 1:1 rule under races.
// Totals are immutable once issued; only payment and due-date/terms change.
type Invoice struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	InvoiceNumber string `gorm:"uniqueIndex;size:20" json:"invoice_number"` // INV-YYYYMM-NNNN
	SaleID        uint   `gorm:"uniqueIndex" json:"sale_id"`

	// Customer snapshot at generation time, independent of later owner edits
	CustomerName    string `gorm:"size:100" json:"customer_name"`
	CustomerEmail   string `gorm:"size:100" json:"customer_email"`
	CustomerPhone   string `gorm:"size:20" json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	CustomerTaxID   string `gorm:"size:20" json:"customer_tax_id"`

	// Business snapshot
	BusinessName    string `gorm:"size:100" json:"business_name"`
	BusinessAddress string `json:"business_address"`
	BusinessPhone   string `gorm:"size:20" json:"business_phone"`
	BusinessEmail   string `gorm:"size:100" json:"business_email"`
	BusinessTaxID   string `gorm:"size:20" json:"business_tax_id"`

	Items []InvoiceLineItem `gorm:"foreignKey:InvoiceID" json:"items"`

	Subtotal      float64 `json:"subtotal"`
	TotalDiscount float64 `json:"total_discount"`
	TotalTaxable  float64 `json:"total_taxable"`
	TotalCGST     float64 `json:"total_cgst"`
	TotalSGST     float64 `json:"total_sgst"`
	TotalIGST     float64 `json:"total_igst"`
	TotalCess     float64 `json:"total_cess"`
	GrandTotal    float64 `json:"grand_total"`
	RoundOff      float64 `json:"round_off"`    // final - grand
	FinalAmount   float64 `json:"final_amount"` // grand rounded to whole currency

	Payment PaymentInfo `gorm:"embedded;embeddedPrefix:payment_" json:"payment"`

	Status    string    `gorm:"size:20" json:"status"` // 'issued', 'cancelled'
	Terms     string    `json:"terms"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	IssueDate time.Time `json:"issue_date"`
	DueDate   time.Time `json:"due_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InvoiceLineItem carries the full GST breakdown. The component amounts are
// recomputed from the sale line's taxable amount and rate, not copied.
type InvoiceLineItem struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	InvoiceID uint `gorm:"index" json:"invoice_id"`

	Name           string  `gorm:"size:150" json:"name"`
	SKU            string  `gorm:"size:64" json:"sku"`
	HSNCode        string  `gorm:"size:20" json:"hsn_code"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxableAmount  float64 `json:"taxable_amount"`

	GSTRate    float64 `json:"gst_rate"`
	GSTType    string  `gorm:"size:20" json:"gst_type"`
	CGSTRate   float64 `json:"cgst_rate"`
	CGSTAmount float64 `json:"cgst_amount"`
	SGSTRate   float64 `json:"sgst_rate"`
	SGSTAmount float64 `json:"sgst_amount"`
	IGSTRate   float64 `json:"igst_rate"`
	IGSTAmount float64 `json:"igst_amount"`
	CessRate   float64 `json:"cess_rate"`
	CessAmount float64 `json:"cess_amount"`

	Total float64 `json:"total"`
}

const (
	InvoiceStatusIssued    = "issued"
	InvoiceStatusCancelled = "cancelled"
)
