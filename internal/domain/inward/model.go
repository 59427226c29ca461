// Package inward records stock receipts, the only writer of the ledger's
// inward quantities.
package inward

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// StockInward is one receipt of goods. Records are immutable after
// creation; corrections are made with compensating entries, never edits.
type StockInward struct {
	ID        id.ID     `db:"id" json:"id"`
	Number    string    `db:"number" json:"number"`
	ProductID id.ID     `db:"product_id" json:"productId"`
	Day       types.Day `db:"day" json:"day"`

	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	CostPerUnit *types.Money   `db:"cost_per_unit" json:"costPerUnit,omitempty"`

	// Supplier passthrough fields, stored as received and not validated
	// against a supplier registry.
	Supplier      string     `db:"supplier" json:"supplier,omitempty"`
	InvoiceNumber string     `db:"invoice_number" json:"invoiceNumber,omitempty"`
	BatchNumber   string     `db:"batch_number" json:"batchNumber,omitempty"`
	ExpiryDate    *types.Day `db:"expiry_date" json:"expiryDate,omitempty"`

	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
}

// NewStockInward creates a receipt for the given product and day.
func NewStockInward(productID id.ID, day types.Day, qty types.Quantity) *StockInward {
	return &StockInward{
		ID:        id.New(),
		ProductID: productID,
		Day:       day,
		Quantity:  qty,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks receipt invariants.
func (r *StockInward) Validate(ctx context.Context) error {
	if id.IsNil(r.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if r.Day.IsZero() {
		return apperror.NewValidation("receipt date is required").
			WithDetail("field", "day")
	}
	if r.Quantity <= 0 {
		return apperror.NewInvalidQuantity("quantity", r.Quantity)
	}
	if r.CostPerUnit != nil && r.CostPerUnit.IsNegative() {
		return apperror.NewValidation("cost cannot be negative").
			WithDetail("field", "costPerUnit")
	}
	return nil
}
