package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/saurabhwebdev/tailtally-sub003/internal/config"
	"github.com/saurabhwebdev/tailtally-sub003/internal/inventory"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
	"github.com/saurabhwebdev/tailtally-sub003/internal/sequence"
	"github.com/saurabhwebdev/tailtally-sub003/internal/tax"
)

// SaleEngine turns a cart of items into a committed Sale. Validation, tax
// math, numbering, persistence and the stock decrement all run inside one
// transaction: either the sale exists with its stock taken, or nothing
// changed at all.
type SaleEngine struct {
	db *gorm.DB
}

func NewSaleEngine(db *gorm.DB) *SaleEngine {
	return &SaleEngine{db: db}
}

// SaleItemInput is one requested cart line.
type SaleItemInput struct {
	ItemID       uint     `json:"item_id" binding:"required"`
	Quantity     int      `json:"quantity" binding:"required"`
	UnitPrice    *float64 `json:"unit_price"` // optional override of the catalog price
	Discount     float64  `json:"discount"`
	DiscountType string   `json:"discount_type"` // 'percentage' (default) or 'fixed'
}

type PaymentInput struct {
	Method        string  `json:"method"`
	PaidAmount    float64 `json:"paid_amount"`
	TransactionID string  `json:"transaction_id"`
}

type CreateSaleInput struct {
	OwnerID uint            `json:"owner_id" binding:"required"`
	PetID   *uint           `json:"pet_id"`
	UserID  uint            `json:"-"` // staff member, from the auth context
	Actor   string          `json:"-"`
	Items   []SaleItemInput `json:"items" binding:"required"`
	Payment *PaymentInput   `json:"payment"`
	Notes   string          `json:"notes"`
}

// CreateSaleResult carries the persisted sale plus the change owed when the
// customer handed over more than the grand total. The excess is never stored
// as negative due.
type CreateSaleResult struct {
	Sale         *models.Sale `json:"sale"`
	ChangeAmount float64      `json:"change_amount"`
}

func (e *SaleEngine) CreateSale(in CreateSaleInput) (*CreateSaleResult, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptySale
	}

	var sale models.Sale
	var change float64
	var owner models.Owner

	// A lost number race reruns the whole unit in a fresh transaction. Under
	// REPEATABLE READ a retry inside the open transaction would re-read its
	// own snapshot, recompute the same number and collide again; rolling back
	// lets the next attempt see the winner's committed row.
	err := sequence.WithRetry(sequence.MaxAttempts, func() error {
		return e.db.Transaction(func(tx *gorm.DB) error {
			// 1. Validate the customer and (optionally) the pet
			if err := tx.First(&owner, in.OwnerID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOwnerNotFound
				}
				return err
			}
			if in.PetID != nil {
				var pet models.Pet
				if err := tx.Where("id = ? AND owner_id = ?", *in.PetID, in.OwnerID).First(&pet).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return ErrPetMismatch
					}
					return err
				}
			}

			// 2. Price every line, snapshotting the item as it is right now
			lines, totals, err := e.buildLines(tx, in.Items)
			if err != nil {
				return err
			}

			sale = models.Sale{
				OwnerID:       in.OwnerID,
				PetID:         in.PetID,
				UserID:        in.UserID,
				Items:         lines,
				Subtotal:      totals.subtotal,
				TotalDiscount: totals.discount,
				TotalTaxable:  totals.taxable,
				TotalGST:      totals.gst,
				GrandTotal:    totals.grand,
				Status:        models.SaleStatusConfirmed,
				Notes:         in.Notes,
				IsActive:      true,
				SaleTime:      time.Now(),
			}

			// 3. Payment fields; excess over the grand total is change, not credit
			change = applyInitialPayment(&sale, in.Payment)

			// 4. Number + insert; a duplicate aborts the attempt for the retry
			number, err := sequence.Next(tx, &models.Sale{}, "sale_number", sequence.SalePrefix, time.Now())
			if err != nil {
				return err
			}
			sale.SaleNumber = number
			if err := tx.Create(&sale).Error; err != nil {
				return err
			}

			// 5. Decrement stock in the same transaction. Any failure here rolls
			// back the sale record too - no sale may survive with stock untaken.
			ledger := inventory.NewLedger(tx)
			for _, line := range sale.Items {
				var err error
				if in.PetID != nil {
					_, err = ledger.SellToPet(line.ItemID, *in.PetID, in.OwnerID, line.Quantity, in.Actor, in.Notes, sale.SaleNumber)
				} else {
					_, err = ledger.AdjustStock(line.ItemID, -line.Quantity, models.MovementTypeSale, in.Actor, in.Notes, sale.SaleNumber)
				}
				if err != nil {
					return err
				}
			}

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// Owner aggregate stats are best-effort, outside the sale's transaction.
	if err := e.db.Model(&models.Owner{}).Where("id = ?", owner.ID).
		Updates(map[string]interface{}{
			"total_spent": gorm.Expr("total_spent + ?", sale.GrandTotal),
			"last_visit":  time.Now(),
		}).Error; err != nil {
		config.LogError("billing", "CreateSale", map[string]interface{}{"owner_id": owner.ID}, err)
	}

	config.GetLogger().WithField("sale_number", sale.SaleNumber).Info("sale created")
	return &CreateSaleResult{Sale: &sale, ChangeAmount: change}, nil
}

type lineTotals struct {
	subtotal float64
	discount float64
	taxable  float64
	gst      float64
	grand    float64
}

// buildLines validates each requested item against live inventory and runs
// the tax calculator, accumulating totals as decimals and summing the
// already-rounded line values (sum-then-round, not round-then-sum).
func (e *SaleEngine) buildLines(tx *gorm.DB, items []SaleItemInput) ([]models.SaleLineItem, lineTotals, error) {
	var lines []models.SaleLineItem
	var subtotal, discount, taxable, gst, grand decimal.Decimal

	for _, req := range items {
		if req.Quantity <= 0 {
			return nil, lineTotals{}, tax.ErrInvalidQuantity
		}

		var item models.InventoryItem
		if err := tx.First(&item, req.ItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, lineTotals{}, fmt.Errorf("%w: id %d", inventory.ErrItemNotFound, req.ItemID)
			}
			return nil, lineTotals{}, err
		}
		if !item.IsActive {
			return nil, lineTotals{}, fmt.Errorf("%w: %s", inventory.ErrInactiveItem, item.Name)
		}
		if item.Quantity < req.Quantity {
			return nil, lineTotals{}, fmt.Errorf("%w: %s has %d left", inventory.ErrInsufficientStock, item.Name, item.Quantity)
		}

		unitPrice := item.UnitPrice
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		discountType := tax.DiscountType(req.DiscountType)
		if discountType == "" {
			discountType = tax.DiscountPercentage
		}
		gstType := tax.GSTType(item.GSTType)
		if item.GSTType == "" {
			gstType = tax.GSTTypeExempt
		}

		result, err := tax.CalculateLine(tax.LineInput{
			Quantity:      req.Quantity,
			UnitPrice:     unitPrice,
			Discount:      req.Discount,
			DiscountType:  discountType,
			GSTApplicable: item.GSTApplicable,
			GSTRate:       item.GSTRate,
			GSTType:       gstType,
			CessRate:      item.CessRate,
		})
		if err != nil {
			return nil, lineTotals{}, fmt.Errorf("item %s: %w", item.Name, err)
		}

		lines = append(lines, models.SaleLineItem{
			ItemID:        item.ID,
			Name:          item.Name,
			SKU:           item.SKU,
			HSNCode:       item.HSNCode,
			Quantity:      req.Quantity,
			UnitPrice:     unitPrice,
			Discount:      req.Discount,
			DiscountType:  string(discountType),
			GSTApplicable: item.GSTApplicable,
			GSTRate:       item.GSTRate,
			GSTType:       string(gstType),
			CessRate:      item.CessRate,

			Subtotal:       result.Subtotal,
			DiscountAmount: result.DiscountAmount,
			TaxableAmount:  result.TaxableAmount,
			GSTAmount:      result.GSTAmount,
			Total:          result.Total,
		})

		subtotal = subtotal.Add(decimal.NewFromFloat(result.Subtotal))
		discount = discount.Add(decimal.NewFromFloat(result.DiscountAmount))
		taxable = taxable.Add(decimal.NewFromFloat(result.TaxableAmount))
		gst = gst.Add(decimal.NewFromFloat(result.GSTAmount))
		grand = grand.Add(decimal.NewFromFloat(result.Total))
	}

	sub, _ := subtotal.Round(2).Float64()
	disc, _ := discount.Round(2).Float64()
	taxb, _ := taxable.Round(2).Float64()
	g, _ := gst.Round(2).Float64()
	gr, _ := grand.Round(2).Float64()
	return lines, lineTotals{subtotal: sub, discount: disc, taxable: taxb, gst: g, grand: gr}, nil
}

// applyInitialPayment fills the sale's payment sub-object and returns any
// change owed. paidAmount + dueAmount always equals the grand total.
func applyInitialPayment(sale *models.Sale, in *PaymentInput) (change float64) {
	sale.Payment.Method = "cash"
	if in != nil && in.Method != "" {
		sale.Payment.Method = in.Method
	}

	paid := 0.0
	if in != nil && in.PaidAmount > 0 {
		paid = in.PaidAmount
	}
	if paid > sale.GrandTotal {
		changeDec := decimal.NewFromFloat(paid).Sub(decimal.NewFromFloat(sale.GrandTotal))
		change, _ = changeDec.Round(2).Float64()
		paid = sale.GrandTotal
	}

	due, _ := decimal.NewFromFloat(sale.GrandTotal).Sub(decimal.NewFromFloat(paid)).Round(2).Float64()
	sale.Payment.PaidAmount = paid
	sale.Payment.DueAmount = due
	sale.Payment.Status = sale.Payment.DeriveStatus(sale.GrandTotal)

	if paid > 0 {
		now := time.Now()
		sale.Payment.PaidAt = &now
		if in != nil && in.TransactionID != "" {
			sale.Payment.TransactionID = in.TransactionID
		} else {
			sale.Payment.TransactionID = uuid.NewString()
		}
	}
	return change
}

// CancelSale reverses the sale: status flips to cancelled and every line's
// stock is restored with a compensating movement referencing the sale number.
// Delivered sales are final.
func (e *SaleEngine) CancelSale(saleID uint, actor string) (*models.Sale, error) {
	var sale models.Sale
	err := e.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&sale, saleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaleNotFound
			}
			return err
		}
		if sale.Status == models.SaleStatusDelivered {
			return ErrAlreadyDelivered
		}
		if sale.Status == models.SaleStatusCancelled {
			return ErrTargetCancelled
		}

		ledger := inventory.NewLedger(tx)
		for _, line := range sale.Items {
			if _, err := ledger.RestoreStock(line.ItemID, line.Quantity, actor, sale.SaleNumber); err != nil {
				return err
			}
		}

		sale.Status = models.SaleStatusCancelled
		sale.IsActive = false
		return tx.Model(&sale).Updates(map[string]interface{}{
			"status":    models.SaleStatusCancelled,
			"is_active": false,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	config.GetLogger().WithField("sale_number", sale.SaleNumber).Info("sale cancelled")
	return &sale, nil
}

// MarkDelivered closes out a confirmed sale.
func (e *SaleEngine) MarkDelivered(saleID uint) (*models.Sale, error) {
	var sale models.Sale
	if err := e.db.First(&sale, saleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	if sale.Status == models.SaleStatusCancelled {
		return nil, ErrTargetCancelled
	}
	if err := e.db.Model(&sale).Update("status", models.SaleStatusDelivered).Error; err != nil {
		return nil, err
	}
	sale.Status = models.SaleStatusDelivered
	return &sale, nil
}

// CompleteAppointmentWithSale finishes an appointment and, when items were
// used, spawns a normal sale for them. All stock and tax logic stays in
// CreateSale; this is orchestration only.
func (e *SaleEngine) CompleteAppointmentWithSale(appointmentID uint, userID uint, actor string, items []SaleItemInput, payment *PaymentInput, notes string) (*models.Appointment, *CreateSaleResult, error) {
	var appt models.Appointment
	if err := e.db.First(&appt, appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrAppointmentNotFound
		}
		return nil, nil, err
	}
	if appt.Status == models.AppointmentStatusCancelled {
		return nil, nil, ErrTargetCancelled
	}

	var result *CreateSaleResult
	if len(items) > 0 {
		var err error
		result, err = e.CreateSale(CreateSaleInput{
			OwnerID: appt.OwnerID,
			PetID:   appt.PetID,
			UserID:  userID,
			Actor:   actor,
			Items:   items,
			Payment: payment,
			Notes:   notes,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.AppointmentStatusCompleted,
		"completed_at": now,
	}
	if result != nil {
		updates["sale_id"] = result.Sale.ID
		appt.SaleID = &result.Sale.ID
	}
	if err := e.db.Model(&appt).Updates(updates).Error; err != nil {
		return nil, nil, err
	}
	appt.Status = models.AppointmentStatusCompleted
	appt.CompletedAt = &now
	return &appt, result, nil
}
