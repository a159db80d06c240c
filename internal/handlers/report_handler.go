package handlers

import (
	"net/http"

	"github.com/saurabhwebdev/tailtally-sub003/internal/database"
	"github.com/saurabhwebdev/tailtally-sub003/internal/models"

	"github.com/gin-gonic/gin"
)

// ReportData defines the shape of our analytics response
type ReportData struct {
	TotalRevenue float64 `json:"total_revenue"`
	TotalGST     float64 `json:"total_gst"`
	TotalOrders  int64   `json:"total_orders"`
	TopSelling   []struct {
		ItemName string  `json:"item_name"`
		Sold     int     `json:"sold"`
		Revenue  float64 `json:"revenue"`
	} `json:"top_selling"`
	RecentSales []models.Sale `json:"recent_sales"`
}

// --- GET: /api/reports ---
func GetSalesReport(c *gin.Context) {
	var data ReportData

	// 1. Total Revenue (cancelled sales excluded)
	err := database.DB.Model(&models.Sale{}).
		Where("status <> ?", models.SaleStatusCancelled).
		Select("COALESCE(SUM(grand_total), 0)").
		Scan(&data.TotalRevenue).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate revenue"})
		return
	}

	// 2. GST collected
	err = database.DB.Model(&models.Sale{}).
		Where("status <> ?", models.SaleStatusCancelled).
		Select("COALESCE(SUM(total_gst), 0)").
		Scan(&data.TotalGST).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate GST"})
		return
	}

	// 3. Count Orders
	err = database.DB.Model(&models.Sale{}).
		Where("status <> ?", models.SaleStatusCancelled).
		Count(&data.TotalOrders).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	// 4. Top 5 Best Sellers
	err = database.DB.Table("sale_line_items").
		Select("sale_line_items.name as item_name, SUM(sale_line_items.quantity) as sold, SUM(sale_line_items.total) as revenue").
		Joins("JOIN sales ON sale_line_items.sale_id = sales.id").
		Where("sales.status <> ?", models.SaleStatusCancelled).
		Group("sale_line_items.name").
		Order("sold desc").
		Limit(5).
		Scan(&data.TopSelling).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch top selling items"})
		return
	}

	// 5. Recent Transactions (last 10, newest first)
	err = database.DB.Preload("Items").Order("sale_time desc").Limit(10).Find(&data.RecentSales).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent sales"})
		return
	}

	c.JSON(http.StatusOK, data)
}

// --- DATA STRUCTURES FOR VALUATION REPORT ---

// ValuationItem represents a single row in the report table
type ValuationItem struct {
	Name       string  `json:"name"`
	SKU        string  `json:"sku"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalValue float64 `json:"total_value"`
}

// CategoryGroup represents one category section (e.g. "FOOD")
type CategoryGroup struct {
	CategoryName string          `json:"category_name"`
	Items        []ValuationItem `json:"items"`
	Subtotal     float64         `json:"subtotal"`
}

// ValuationResponse is the final payload
type ValuationResponse struct {
	Categories []CategoryGroup `json:"categories"`
	GrandTotal float64         `json:"grand_total"`
}

// --- GET: /api/reports/valuation ---
// GetStockValuation calculates the total monetary value of all physical inventory
func GetStockValuation(c *gin.Context) {
	var items []models.InventoryItem

	if err := database.DB.Where("is_active = ?", true).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	var grandTotal float64
	groupedMap := make(map[string]*CategoryGroup)

	for _, item := range items {
		catName := item.Category
		if catName == "" {
			catName = "Uncategorized"
		}

		if _, exists := groupedMap[catName]; !exists {
			groupedMap[catName] = &CategoryGroup{
				CategoryName: catName,
				Items:        []ValuationItem{},
			}
		}

		itemTotal := float64(item.Quantity) * item.UnitPrice

		groupedMap[catName].Items = append(groupedMap[catName].Items, ValuationItem{
			Name:       item.Name,
			SKU:        item.SKU,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalValue: itemTotal,
		})

		groupedMap[catName].Subtotal += itemTotal
		grandTotal += itemTotal
	}

	var response ValuationResponse
	response.GrandTotal = grandTotal
	for _, group := range groupedMap {
		response.Categories = append(response.Categories, *group)
	}

	c.JSON(http.StatusOK, response)
}

// --- GET: /api/reports/low-stock ---
// Items at or below their minimum stock threshold, most depleted first.
func GetLowStockReport(c *gin.Context) {
	var items []models.InventoryItem

	err := database.DB.
		Where("is_active = ? AND quantity <= min_stock", true).
		Order("quantity asc").
		Find(&items).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch low stock items"})
		return
	}

	c.JSON(http.StatusOK, items)
}
