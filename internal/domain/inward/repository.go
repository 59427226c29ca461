package inward

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
)

// Repository defines storage operations for stock receipts.
type Repository interface {
	Create(ctx context.Context, rec *StockInward) error
	GetByID(ctx context.Context, inwardID id.ID) (*StockInward, error)

	// SumQuantityByProductDay returns the sum of receipt quantities for
	// one product on one day. Used by the consistency check against the
	// ledger's stock_inward.
	SumQuantityByProductDay(ctx context.Context, productID id.ID, day types.Day) (types.Quantity, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockInward], error)
}

// ListFilter for filtering receipts.
type ListFilter struct {
	domain.ListFilter

	ProductID *id.ID
	DayFrom   *types.Day
	DayTo     *types.Day
}
