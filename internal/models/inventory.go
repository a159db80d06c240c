package models

import (
	"time"
)

// InventoryItem - a sellable stock unit.
// Quantity is only ever changed through the inventory ledger so every
// movement leaves a StockMovement behind. Never write the field directly.
type InventoryItem struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	SKU          string  `gorm:"uniqueIndex;size:64" json:"sku"`
	Name         string  `gorm:"size:150" json:"name"`
	Category     string  `gorm:"size:50" json:"category"`
	Quantity     int     `json:"quantity"` // invariant: >= 0
	UnitPrice    float64 `json:"unit_price"`
	MinStock     int     `json:"min_stock"` // low-stock alert threshold

	// GST profile, captured per item so each sale line can snapshot it
	GSTApplicable bool    `json:"gst_applicable"`
	GSTRate       float64 `json:"gst_rate"` // percent, 0-100
	GSTType       string  `gorm:"size:20" json:"gst_type"` // tax.GSTType values
	HSNCode       string  `gorm:"size:20" json:"hsn_code"`
	CessRate      float64 `json:"cess_rate"`

	TotalSold    int             `json:"total_sold"`
	LastSaleDate *time.Time      `json:"last_sale_date"`
	ImageURL     string          `json:"image_url"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
	Movements    []StockMovement `gorm:"foreignKey:ItemID" json:"movements,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// StockMovement - append-only log entry. Rows are never edited or removed;
// the full quantity history of an item is the sum of its movements.
type StockMovement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemID    uint      `gorm:"index" json:"item_id"`
	Type      string    `gorm:"size:20" json:"type"` // 'sale', 'purchase', 'adjustment'
	Delta     int       `json:"delta"`               // signed quantity change
	Actor     string    `gorm:"size:100" json:"actor"`
	Note      string    `json:"note"`
	Reference string    `gorm:"size:100" json:"reference"` // e.g. the sale number
	OwnerID   *uint     `json:"owner_id"`                  // set for sell-to-pet usage records
	PetID     *uint     `json:"pet_id"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	MovementTypeSale       = "sale"
	MovementTypePurchase   = "purchase"
	MovementTypeAdjustment = "adjustment"
)
