// Package inventory owns item stock levels. Quantity is mutated exclusively
// through the ledger so every change appends a StockMovement and the
// non-negative invariant holds even under concurrent sales.
package inventory

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
	"github.com/saurabhwebdev/tailtally-sub003/internal/notify"
)

var (
	ErrItemNotFound      = errors.New("inventory item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInactiveItem      = errors.New("item is deactivated")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrInvalidMovement   = errors.New("unknown movement type")
)

// Ledger runs against whatever gorm handle it is built with, so engines can
// hand it their open transaction and have decrements commit or roll back
// with the rest of the sale.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// AdjustStock applies a signed quantity delta and appends the movement.
// The decrement itself is a single conditional UPDATE (quantity + delta >= 0
// checked in the same statement), not a read-then-write, so two concurrent
// sales of the same SKU can never oversell it.
func (l *Ledger) AdjustStock(itemID uint, delta int, movType, actor, note, reference string) (*models.InventoryItem, error) {
	return l.adjust(itemID, delta, movType, actor, note, reference, nil, nil)
}

// SellToPet records which pet the stock was used for, then delegates to the
// normal sale adjustment.
func (l *Ledger) SellToPet(itemID, petID, ownerID uint, quantity int, actor, note, reference string) (*models.InventoryItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.adjust(itemID, -quantity, models.MovementTypeSale, actor, note, reference, &ownerID, &petID)
}

// RestoreStock reverses a sale's decrement, e.g. on cancellation. Increasing
// stock never underflows, so this always succeeds for a live item.
func (l *Ledger) RestoreStock(itemID uint, quantity int, actor, reference string) (*models.InventoryItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	return l.adjust(itemID, quantity, models.MovementTypeAdjustment, actor, "stock restored from cancelled sale", reference, nil, nil)
}

func (l *Ledger) adjust(itemID uint, delta int, movType, actor, note, reference string, ownerID, petID *uint) (*models.InventoryItem, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}
	switch movType {
	case models.MovementTypeSale, models.MovementTypePurchase, models.MovementTypeAdjustment:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMovement, movType)
	}

	var item models.InventoryItem
	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}
		if movType == models.MovementTypeSale && !item.IsActive {
			return fmt.Errorf("%w: %s", ErrInactiveItem, item.Name)
		}

		// Atomic conditional update: the guard and the decrement are one statement.
		res := tx.Model(&models.InventoryItem{}).
			Where("id = ? AND quantity + ? >= 0", itemID, delta).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s has %d left", ErrInsufficientStock, item.Name, item.Quantity)
		}

		if movType == models.MovementTypeSale && delta < 0 {
			now := time.Now()
			if err := tx.Model(&models.InventoryItem{}).
				Where("id = ?", itemID).
				Updates(map[string]interface{}{
					"total_sold":     gorm.Expr("total_sold + ?", -delta),
					"last_sale_date": now,
				}).Error; err != nil {
				return err
			}
		}

		movement := models.StockMovement{
			ItemID:    itemID,
			Type:      movType,
			Delta:     delta,
			Actor:     actor,
			Note:      note,
			Reference: reference,
			OwnerID:   ownerID,
			PetID:     petID,
		}
		if err := tx.Create(&movement).Error; err != nil {
			return err
		}

		return tx.First(&item, itemID).Error
	})
	if err != nil {
		return nil, err
	}

	// Alerting must never block or fail the mutation; it runs detached.
	if movType == models.MovementTypeSale && item.Quantity <= item.MinStock {
		notify.LowStock(item)
	}

	return &item, nil
}

// Movements returns the append-only history for one item, newest first.
func (l *Ledger) Movements(itemID uint) ([]models.StockMovement, error) {
	var count int64
	if err := l.db.Model(&models.InventoryItem{}).Where("id = ?", itemID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrItemNotFound
	}
	var movements []models.StockMovement
	err := l.db.Where("item_id = ?", itemID).Order("created_at DESC, id DESC").Find(&movements).Error
	return movements, err
}

// Deactivate soft-disables an item so it can no longer be sold. Items with
// movement history are never hard-deleted; those without any may be removed.
func (l *Ledger) Deactivate(itemID uint, hardDeleteIfUnused bool) error {
	return l.db.Transaction(func(tx *gorm.DB) error {
		var item models.InventoryItem
		if err := tx.First(&item, itemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrItemNotFound
			}
			return err
		}

		var movements int64
		if err := tx.Model(&models.StockMovement{}).Where("item_id = ?", itemID).Count(&movements).Error; err != nil {
			return err
		}
		if movements == 0 && hardDeleteIfUnused {
			return tx.Delete(&models.InventoryItem{}, itemID).Error
		}
		return tx.Model(&item).Update("is_active", false).Error
	})
}
