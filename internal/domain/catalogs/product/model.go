// Package product provides the product master-data registry.
// The registry owns the live stock_quantity counter; sale and inward
// operations are the only callers allowed to move it, and only through
// AdjustStock within a transaction scope.
package product

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Status represents product lifecycle status.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Product represents a retail product master record.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`

	// Category is used by reporting to group day-wise summaries
	Category string `db:"category" json:"category,omitempty"`

	// StockQuantity is the live stock counter, the system's current belief
	// about on-hand stock. The per-day ledger snapshot is derived from it.
	StockQuantity types.Quantity `db:"stock_quantity" json:"stockQuantity"`

	// CostPerUnit is the current cost basis for valuation
	CostPerUnit types.Money `db:"cost_per_unit" json:"costPerUnit"`

	// MinStockLevel triggers the low-stock flag in summaries
	MinStockLevel types.Quantity `db:"min_stock_level" json:"minStockLevel"`

	Status Status `db:"status" json:"status"`

	// Version for optimistic locking (incremented on each update)
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// New creates a new active product with generated ID.
func New(sku, name string, cost types.Money) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:          id.New(),
		SKU:         sku,
		Name:        name,
		CostPerUnit: cost,
		Status:      StatusActive,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsActive reports whether the product accepts sales and inward stock.
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// BelowMinStock reports whether live stock has fallen under the threshold.
func (p *Product) BelowMinStock() bool {
	return p.MinStockLevel > 0 && p.StockQuantity < p.MinStockLevel
}

// Touch updates the timestamp and increments version.
func (p *Product) Touch() {
	p.UpdatedAt = time.Now().UTC()
	p.Version++
}

// Validate checks product invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.SKU == "" {
		return apperror.NewValidation("sku is required").
			WithDetail("field", "sku")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if p.StockQuantity < 0 {
		return apperror.NewValidation("stock quantity cannot be negative").
			WithDetail("field", "stockQuantity")
	}
	if p.CostPerUnit.IsNegative() {
		return apperror.NewValidation("cost per unit cannot be negative").
			WithDetail("field", "costPerUnit")
	}
	if p.Status != StatusActive && p.Status != StatusInactive {
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(p.Status))
	}
	return nil
}
