// Package notify dispatches operational alerts. Dispatch is fire-and-forget:
// a failed or slow notification must never block or fail the stock mutation
// that triggered it.
package notify

import (
	"github.com/sirupsen/logrus"

	"github.com/saurabhwebdev/tailtally-sub003/internal/config"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
)

// LowStock raises an alert when an item falls to or below its minimum stock
// threshold. Runs in its own goroutine.
// TODO: hook up the email channel once the notification service exposes one.
func LowStock(item models.InventoryItem) {
	go func() {
		config.GetLogger().WithFields(logrus.Fields{
			"module":    "notify",
			"item_id":   item.ID,
			"sku":       item.SKU,
			"quantity":  item.Quantity,
			"min_stock": item.MinStock,
		}).Warn("low stock alert")
	}()
}
