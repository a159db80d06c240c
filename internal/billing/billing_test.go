package billing

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Owner{}, &models.Pet{}, &models.Appointment{},
		&models.InventoryItem{}, &models.StockMovement{},
		&models.Sale{}, &models.SaleLineItem{},
		&models.Invoice{}, &models.InvoiceLineItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedOwner(t *testing.T, db *gorm.DB) models.Owner {
	t.Helper()
	owner := models.Owner{Name: "Priya Nair", Phone: "9800000001", Email: "priya@example.com"}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("seed owner: %v", err)
	}
	return owner
}

func seedPet(t *testing.T, db *gorm.DB, ownerID uint) models.Pet {
	t.Helper()
	pet := models.Pet{OwnerID: ownerID, Name: "Bruno", Species: "dog"}
	if err := db.Create(&pet).Error; err != nil {
		t.Fatalf("seed pet: %v", err)
	}
	return pet
}

// seedGSTItem creates a 100-rupee item at 18% CGST_SGST with the given stock.
func seedGSTItem(t *testing.T, db *gorm.DB, sku string, quantity int) models.InventoryItem {
	t.Helper()
	item := models.InventoryItem{
		SKU:           sku,
		Name:          "Item " + sku,
		Category:      "FOOD",
		Quantity:      quantity,
		UnitPrice:     100,
		MinStock:      1,
		GSTApplicable: true,
		GSTRate:       18,
		GSTType:       "CGST_SGST",
		HSNCode:       "2309",
		IsActive:      true,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func itemQuantity(t *testing.T, db *gorm.DB, itemID uint) int {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, itemID).Error; err != nil {
		t.Fatalf("reload item: %v", err)
	}
	return item.Quantity
}
