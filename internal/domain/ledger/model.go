// Package ledger provides the daily stock ledger: one derived,
// invariant-bearing record per (product, calendar day).
package ledger

import (
	"fmt"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// DailyStockRecord is the per-product-per-day snapshot of opening, inward,
// sold and closing stock with valuation.
//
// closing_stock is always derived: opening + inward - sold. The physical
// count fields are advisory annotations written by an approved
// reconciliation; they never feed back into the arithmetic chain.
type DailyStockRecord struct {
	ID        id.ID     `db:"id" json:"id"`
	ProductID id.ID     `db:"product_id" json:"productId"`
	Day       types.Day `db:"day" json:"day"`

	// OpeningStock is set once at record creation (prior day's closing,
	// or zero) and is immutable afterwards.
	OpeningStock types.Quantity `db:"opening_stock" json:"openingStock"`

	// StockInward accumulates inward quantities during the day.
	StockInward types.Quantity `db:"stock_inward" json:"stockInward"`

	// SoldQuantity accumulates sale quantities during the day.
	SoldQuantity types.Quantity `db:"sold_quantity" json:"soldQuantity"`

	// ClosingStock = OpeningStock + StockInward - SoldQuantity.
	ClosingStock types.Quantity `db:"closing_stock" json:"closingStock"`

	// CostPerUnit is the cost basis captured at record creation; later
	// product cost changes do not rewrite it, only an inward with an
	// explicit cost does.
	CostPerUnit types.Money `db:"cost_per_unit" json:"costPerUnit"`

	// StockValue = ClosingStock * CostPerUnit.
	StockValue types.Money `db:"stock_value" json:"stockValue"`

	// Reconciliation annotations, populated only by an approved
	// reconciliation for this day.
	PhysicalStock      *types.Quantity `db:"physical_stock" json:"physicalStock,omitempty"`
	StockVariance      *types.Quantity `db:"stock_variance" json:"stockVariance,omitempty"`
	ReconciliationDate *time.Time      `db:"reconciliation_date" json:"reconciliationDate,omitempty"`
	ReconciledBy       *string         `db:"reconciled_by" json:"reconciledBy,omitempty"`

	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewDailyStockRecord creates a fresh record for a day with the rolled
// forward opening stock and the product's current cost basis.
func NewDailyStockRecord(productID id.ID, day types.Day, opening types.Quantity, cost types.Money) *DailyStockRecord {
	now := time.Now().UTC()
	rec := &DailyStockRecord{
		ID:           id.New(),
		ProductID:    productID,
		Day:          day,
		OpeningStock: opening,
		CostPerUnit:  cost,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	rec.recompute()
	return rec
}

// recompute rederives the closing stock and valuation.
func (r *DailyStockRecord) recompute() {
	r.ClosingStock = r.OpeningStock + r.StockInward - r.SoldQuantity
	r.StockValue = types.MoneyFromInt(r.ClosingStock).Mul(r.CostPerUnit)
}

// ApplySale increments the sold quantity and rederives closing stock.
func (r *DailyStockRecord) ApplySale(qty types.Quantity) error {
	if qty <= 0 {
		return apperror.NewInvalidQuantity("quantity", qty)
	}
	r.SoldQuantity += qty
	r.recompute()
	r.Touch()
	return r.CheckInvariant()
}

// ApplyInward increments the inward quantity and rederives closing stock.
// A non-nil cost resets the day's cost basis for valuation going forward.
func (r *DailyStockRecord) ApplyInward(qty types.Quantity, cost *types.Money) error {
	if qty <= 0 {
		return apperror.NewInvalidQuantity("quantity", qty)
	}
	r.StockInward += qty
	if cost != nil {
		r.CostPerUnit = *cost
	}
	r.recompute()
	r.Touch()
	return r.CheckInvariant()
}

// Annotate records an approved physical count against this day. The
// arithmetic fields are left untouched; divergence surfaces as variance
// for investigation instead of being absorbed into the running total.
func (r *DailyStockRecord) Annotate(physical types.Quantity, reconciledBy string, at time.Time) {
	variance := physical - r.ClosingStock
	r.PhysicalStock = &physical
	r.StockVariance = &variance
	r.ReconciliationDate = &at
	r.ReconciledBy = &reconciledBy
	r.Touch()
}

// Touch updates the timestamp and increments version.
func (r *DailyStockRecord) Touch() {
	r.UpdatedAt = time.Now().UTC()
	r.Version++
}

// CheckInvariant verifies the arithmetic closure:
// closing == opening + inward - sold, with no negative components.
// A violation is fatal for the triggering operation and is never
// silently corrected, since that can mask an oversell or a lost update.
func (r *DailyStockRecord) CheckInvariant() error {
	derived := r.OpeningStock + r.StockInward - r.SoldQuantity
	if r.ClosingStock != derived {
		return apperror.NewInvariantViolation(
			fmt.Sprintf("closing_stock %d != opening %d + inward %d - sold %d",
				r.ClosingStock, r.OpeningStock, r.StockInward, r.SoldQuantity)).
			WithDetail("product_id", r.ProductID.String()).
			WithDetail("day", r.Day.String())
	}
	if r.OpeningStock < 0 || r.StockInward < 0 || r.SoldQuantity < 0 {
		return apperror.NewInvariantViolation("ledger quantities cannot be negative").
			WithDetail("product_id", r.ProductID.String()).
			WithDetail("day", r.Day.String())
	}
	return nil
}

// HasAnnotation reports whether a physical count was written for this day.
func (r *DailyStockRecord) HasAnnotation() bool {
	return r.PhysicalStock != nil
}
