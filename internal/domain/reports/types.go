// Package reports provides read-only reporting over the daily stock
// ledger.
package reports

import (
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// --- Daily Summary ---

// DailySummaryFilter selects the day and optional category slice.
type DailySummaryFilter struct {
	Day      types.Day
	Category *string
}

// DailySummaryRow is one product's ledger state for the day, joined with
// catalog data.
type DailySummaryRow struct {
	ProductID id.ID  `db:"product_id" json:"productId"`
	SKU       string `db:"sku" json:"sku"`
	Name      string `db:"name" json:"name"`
	Category  string `db:"category" json:"category"`

	OpeningStock types.Quantity `db:"opening_stock" json:"openingStock"`
	StockInward  types.Quantity `db:"stock_inward" json:"stockInward"`
	SoldQuantity types.Quantity `db:"sold_quantity" json:"soldQuantity"`
	ClosingStock types.Quantity `db:"closing_stock" json:"closingStock"`
	StockValue   types.Money    `db:"stock_value" json:"stockValue"`

	PhysicalStock *types.Quantity `db:"physical_stock" json:"physicalStock,omitempty"`
	StockVariance *types.Quantity `db:"stock_variance" json:"stockVariance,omitempty"`

	BelowMinStock bool `db:"below_min_stock" json:"belowMinStock"`
}

// DailySummary aggregates one day of ledger activity.
type DailySummary struct {
	Day  types.Day         `json:"day"`
	Rows []DailySummaryRow `json:"rows"`

	TotalInward   types.Quantity `json:"totalInward"`
	TotalSold     types.Quantity `json:"totalSold"`
	TotalValue    types.Money    `json:"totalValue"`
	BelowMinCount int            `json:"belowMinCount"`
}

// --- Movement Report ---

// MovementFilter selects a date range and optional product/category.
type MovementFilter struct {
	From      types.Day
	To        types.Day
	ProductID *id.ID
	Category  *string
}

// MovementRow is one product's aggregate over the range.
type MovementRow struct {
	ProductID id.ID  `db:"product_id" json:"productId"`
	SKU       string `db:"sku" json:"sku"`
	Name      string `db:"name" json:"name"`

	OpeningStock types.Quantity `db:"opening_stock" json:"openingStock"`
	TotalInward  types.Quantity `db:"total_inward" json:"totalInward"`
	TotalSold    types.Quantity `db:"total_sold" json:"totalSold"`
	ClosingStock types.Quantity `db:"closing_stock" json:"closingStock"`
}

// MovementReport is the turnover over a date range: per product, the
// opening balance at range start, total in and out, and closing balance
// at range end.
type MovementReport struct {
	From types.Day     `json:"from"`
	To   types.Day     `json:"to"`
	Rows []MovementRow `json:"rows"`
}
