package ledger

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Repository defines storage operations for the daily stock ledger.
//
// The (product_id, day) pair carries a storage-level uniqueness
// constraint; InsertIfAbsent plus a re-fetch loop is the only sanctioned
// creation path, never read-then-write.
type Repository interface {
	// Get returns the record for (productID, day), or NotFound.
	Get(ctx context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error)

	// GetForUpdate returns the record with an exclusive row lock. Must
	// be called within a transaction. Lock granularity is exactly one
	// (productID, day) row.
	GetForUpdate(ctx context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error)

	// GetLatestBefore returns the most recent record strictly before day,
	// or NotFound if the product has no prior history.
	GetLatestBefore(ctx context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error)

	// InsertIfAbsent inserts the record unless one already exists for its
	// (productID, day). Returns false without error when another writer
	// won the race.
	InsertIfAbsent(ctx context.Context, rec *DailyStockRecord) (bool, error)

	// Update persists a mutated record.
	Update(ctx context.Context, rec *DailyStockRecord) error

	// ListRange returns records with day in [from, to], optionally
	// restricted to a product category, ordered by day then product.
	ListRange(ctx context.Context, from, to types.Day, category *string) ([]*DailyStockRecord, error)

	// ListByDay returns all records for one day, optionally restricted
	// to a product category.
	ListByDay(ctx context.Context, day types.Day, category *string) ([]*DailyStockRecord, error)
}
