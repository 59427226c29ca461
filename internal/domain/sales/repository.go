package sales

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
)

// Repository defines storage operations for sale documents.
type Repository interface {
	Create(ctx context.Context, sale *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	GetLines(ctx context.Context, saleID id.ID) ([]SaleLine, error)
	SaveLines(ctx context.Context, saleID id.ID, lines []SaleLine) error

	// SumQuantityByProductDay returns the sum of line-item quantities for
	// one product across all sales on one day. Used by the consistency
	// check that the ledger's sold_quantity agrees with sale history.
	SumQuantityByProductDay(ctx context.Context, productID id.ID, day types.Day) (types.Quantity, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ListFilter for filtering sales.
type ListFilter struct {
	domain.ListFilter

	ProductID *id.ID
	DayFrom   *types.Day
	DayTo     *types.Day
}
