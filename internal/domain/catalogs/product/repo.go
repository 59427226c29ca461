package product

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
)

// Repository defines storage operations for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)

	// GetForUpdate returns the product with a row lock. Must be called
	// within a transaction; the lock serializes stock mutations for one
	// product without blocking unrelated products.
	GetForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	// AdjustStock atomically applies a delta to the live stock counter
	// and returns the new quantity. Negative results are rejected by the
	// storage constraint, not by a read-then-write check.
	AdjustStock(ctx context.Context, productID id.ID, delta types.Quantity) (types.Quantity, error)

	// SetCost updates the current cost basis.
	SetCost(ctx context.Context, productID id.ID, cost types.Money) error

	Update(ctx context.Context, p *Product) error

	// ListActive returns every active product; used by the reconciliation
	// snapshot.
	ListActive(ctx context.Context) ([]*Product, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error)
}

// ListFilter for filtering products.
type ListFilter struct {
	domain.ListFilter

	Category      *string
	Status        *Status
	BelowMinStock bool
}
