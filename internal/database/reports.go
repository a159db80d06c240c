package database

import (
	"time"

	"github.com/saurabhwebdev/tailtally-sub003/internal/models"
)

// SalesReportResult holds the aggregates the reports and the AI assistant need
type SalesReportResult struct {
	TotalRevenue float64
	TotalGST     float64
	TotalCount   int64
}

// GetSalesReport calculates sales within a specific date range. Cancelled
// sales are excluded.
func GetSalesReport(start, end time.Time) (*SalesReportResult, error) {
	var result SalesReportResult

	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := DB.Model(&models.Sale{}).
		Where("sale_time BETWEEN ? AND ? AND status <> ?", start, end, models.SaleStatusCancelled).
		Select("COALESCE(SUM(grand_total), 0)").
		Scan(&result.TotalRevenue).Error
	if err != nil {
		return nil, err
	}

	err = DB.Model(&models.Sale{}).
		Where("sale_time BETWEEN ? AND ? AND status <> ?", start, end, models.SaleStatusCancelled).
		Select("COALESCE(SUM(total_gst), 0)").
		Scan(&result.TotalGST).Error
	if err != nil {
		return nil, err
	}

	err = DB.Model(&models.Sale{}).
		Where("sale_time BETWEEN ? AND ? AND status <> ?", start, end, models.SaleStatusCancelled).
		Count(&result.TotalCount).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}
