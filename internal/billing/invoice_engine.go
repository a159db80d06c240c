package billing

import (
	"errors"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/saurabhwebdev/tailtally-sub003/internal/config"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
	"github.com/saurabhwebdev/tailtally-sub003/internal/sequence"
	"github.com/saurabhwebdev/tailtally-sub003/internal/tax"
)

// InvoiceEngine derives exactly one Invoice from a confirmed Sale: the GST of
// every line is re-expanded into its CGST/SGST/IGST/cess components, totals
// are rounded off to a payable amount, and customer/business details are
// frozen as they stand right now.
type InvoiceEngine struct {
	db *gorm.DB
}

func NewInvoiceEngine(db *gorm.DB) *InvoiceEngine {
	return &InvoiceEngine{db: db}
}

// BusinessInfo is the issuer snapshot stamped onto every invoice.
type BusinessInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	TaxID   string `json:"tax_id"`
}

// BusinessInfoFromEnv reads the configured shop identity.
func BusinessInfoFromEnv() BusinessInfo {
	return BusinessInfo{
		Name:    os.Getenv("BUSINESS_NAME"),
		Address: os.Getenv("BUSINESS_ADDRESS"),
		Phone:   os.Getenv("BUSINESS_PHONE"),
		Email:   os.Getenv("BUSINESS_EMAIL"),
		TaxID:   os.Getenv("BUSINESS_GSTIN"),
	}
}

type GenerateInvoiceInput struct {
	SaleID   uint          `json:"sale_id" binding:"required"`
	DueDate  *time.Time    `json:"due_date"`
	Terms    string        `json:"terms"`
	Business *BusinessInfo `json:"business"`
}

func (e *InvoiceEngine) GenerateInvoice(in GenerateInvoiceInput) (*models.Invoice, error) {
	var invoice models.Invoice

	// Number collisions rerun the whole unit in a fresh transaction so the
	// re-read sees committed state (an in-transaction retry would re-read the
	// same REPEATABLE READ snapshot). A duplicate on sale_id - another request
	// winning the 1:1 race - lands here too: the retry's pre-check then finds
	// the committed invoice and returns ErrInvoiceAlreadyExists.
	err := sequence.WithRetry(sequence.MaxAttempts, func() error {
		return e.db.Transaction(func(tx *gorm.DB) error {
			var sale models.Sale
			if err := tx.Preload("Items").First(&sale, in.SaleID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrSaleNotFound
				}
				return err
			}
			if sale.Status == models.SaleStatusCancelled {
				return ErrTargetCancelled
			}
			if len(sale.Items) == 0 {
				return ErrEmptySale
			}

			// 1:1 rule: reject if an invoice already references this sale. The
			// unique index on sale_id catches the race this pre-check can miss.
			var existing int64
			if err := tx.Model(&models.Invoice{}).Where("sale_id = ?", sale.ID).Count(&existing).Error; err != nil {
				return err
			}
			if existing > 0 {
				return ErrInvoiceAlreadyExists
			}

			var owner models.Owner
			if err := tx.First(&owner, sale.OwnerID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOwnerNotFound
				}
				return err
			}

			business := BusinessInfoFromEnv()
			if in.Business != nil {
				business = *in.Business
			}

			lines, totals, err := expandLines(sale.Items)
			if err != nil {
				return err
			}

			finalAmount, roundOff := tax.RoundToRupee(sale.GrandTotal)

			issueDate := time.Now()
			dueDate := issueDate.AddDate(0, 0, 30)
			if in.DueDate != nil {
				dueDate = *in.DueDate
			}

			invoice = models.Invoice{
				SaleID: sale.ID,

				CustomerName:    owner.Name,
				CustomerEmail:   owner.Email,
				CustomerPhone:   owner.Phone,
				CustomerAddress: owner.Address,
				CustomerTaxID:   owner.TaxID,

				BusinessName:    business.Name,
				BusinessAddress: business.Address,
				BusinessPhone:   business.Phone,
				BusinessEmail:   business.Email,
				BusinessTaxID:   business.TaxID,

				Items: lines,

				Subtotal:      sale.Subtotal,
				TotalDiscount: sale.TotalDiscount,
				TotalTaxable:  sale.TotalTaxable,
				TotalCGST:     totals.cgst,
				TotalSGST:     totals.sgst,
				TotalIGST:     totals.igst,
				TotalCess:     totals.cess,
				GrandTotal:    sale.GrandTotal,
				RoundOff:      roundOff,
				FinalAmount:   finalAmount,

				Status:    models.InvoiceStatusIssued,
				Terms:     in.Terms,
				IsActive:  true,
				IssueDate: issueDate,
				DueDate:   dueDate,
			}

			// Mirror the sale's payment state against the rounded payable amount.
			projectPayment(&invoice, &sale)

			number, err := sequence.Next(tx, &models.Invoice{}, "invoice_number", sequence.InvoicePrefix, time.Now())
			if err != nil {
				return err
			}
			invoice.InvoiceNumber = number
			if err := tx.Create(&invoice).Error; err != nil {
				return err
			}

			// Link back: the sale remembers its one invoice
			return tx.Model(&models.Sale{}).Where("id = ?", sale.ID).Update("invoice_id", invoice.ID).Error
		})
	})
	if err != nil {
		return nil, err
	}

	config.GetLogger().WithField("invoice_number", invoice.InvoiceNumber).Info("invoice generated")
	return &invoice, nil
}

type invoiceTotals struct {
	cgst float64
	sgst float64
	igst float64
	cess float64
}

// expandLines recomputes each sale line's GST split from its taxable amount
// and rate. The sale's aggregate gst amount is never copied over.
func expandLines(saleItems []models.SaleLineItem) ([]models.InvoiceLineItem, invoiceTotals, error) {
	var lines []models.InvoiceLineItem
	var cgst, sgst, igst, cess decimal.Decimal

	for _, item := range saleItems {
		split, err := tax.SplitGST(item.TaxableAmount, item.GSTRate, tax.GSTType(item.GSTType), item.CessRate, item.GSTApplicable)
		if err != nil {
			return nil, invoiceTotals{}, err
		}

		taxSum := decimal.NewFromFloat(split.CGSTAmount).
			Add(decimal.NewFromFloat(split.SGSTAmount)).
			Add(decimal.NewFromFloat(split.IGSTAmount)).
			Add(decimal.NewFromFloat(split.CessAmount))
		total, _ := decimal.NewFromFloat(item.TaxableAmount).Add(taxSum).Round(2).Float64()

		lines = append(lines, models.InvoiceLineItem{
			Name:           item.Name,
			SKU:            item.SKU,
			HSNCode:        item.HSNCode,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice,
			DiscountAmount: item.DiscountAmount,
			TaxableAmount:  item.TaxableAmount,

			GSTRate:    item.GSTRate,
			GSTType:    item.GSTType,
			CGSTRate:   split.CGSTRate,
			CGSTAmount: split.CGSTAmount,
			SGSTRate:   split.SGSTRate,
			SGSTAmount: split.SGSTAmount,
			IGSTRate:   split.IGSTRate,
			IGSTAmount: split.IGSTAmount,
			CessRate:   item.CessRate,
			CessAmount: split.CessAmount,

			Total: total,
		})

		cgst = cgst.Add(decimal.NewFromFloat(split.CGSTAmount))
		sgst = sgst.Add(decimal.NewFromFloat(split.SGSTAmount))
		igst = igst.Add(decimal.NewFromFloat(split.IGSTAmount))
		cess = cess.Add(decimal.NewFromFloat(split.CessAmount))
	}

	c, _ := cgst.Round(2).Float64()
	s, _ := sgst.Round(2).Float64()
	i, _ := igst.Round(2).Float64()
	ce, _ := cess.Round(2).Float64()
	return lines, invoiceTotals{cgst: c, sgst: s, igst: i, cess: ce}, nil
}

// CancelInvoice voids an unpaid invoice. Stock is governed by the sale, so
// cancelling an invoice never touches inventory.
func (e *InvoiceEngine) CancelInvoice(invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&invoice, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return err
		}
		if invoice.Status == models.InvoiceStatusCancelled {
			return ErrTargetCancelled
		}
		if invoice.Payment.Status == models.PaymentStatusPaid {
			return ErrAlreadyPaid
		}

		invoice.Status = models.InvoiceStatusCancelled
		invoice.IsActive = false
		return tx.Model(&invoice).Updates(map[string]interface{}{
			"status":    models.InvoiceStatusCancelled,
			"is_active": false,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// GetInvoice loads an invoice with its payment state refreshed from the sale
// (the sale's payment record is the source of truth once an invoice exists).
func (e *InvoiceEngine) GetInvoice(invoiceID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := e.db.Preload("Items").First(&invoice, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}

	var sale models.Sale
	if err := e.db.First(&sale, invoice.SaleID).Error; err == nil {
		projectPayment(&invoice, &sale)
	}
	return &invoice, nil
}
