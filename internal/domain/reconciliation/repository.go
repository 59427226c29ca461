package reconciliation

import (
	"context"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
)

// Repository defines storage operations for reconciliations.
//
// The day column carries a storage-level uniqueness constraint; Create
// maps the conflict to DuplicateReconciliation so two clerks opening the
// same day race safely.
type Repository interface {
	Create(ctx context.Context, rec *Reconciliation) error
	GetByID(ctx context.Context, reconID id.ID) (*Reconciliation, error)
	GetByDay(ctx context.Context, day types.Day) (*Reconciliation, error)

	// GetForUpdate returns the reconciliation with an exclusive row lock.
	// Must be called within a transaction. Items are loaded with it.
	GetForUpdate(ctx context.Context, reconID id.ID) (*Reconciliation, error)

	Update(ctx context.Context, rec *Reconciliation) error

	GetItems(ctx context.Context, reconID id.ID) ([]Item, error)
	SaveItems(ctx context.Context, reconID id.ID, items []Item) error
	UpdateItem(ctx context.Context, reconID id.ID, item *Item) error

	// MarkItemAnnotated flags that the item's count was written to the
	// ledger, making finalization resumable after a partial failure.
	MarkItemAnnotated(ctx context.Context, itemID id.ID) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Reconciliation], error)
}

// ListFilter for filtering reconciliations.
type ListFilter struct {
	domain.ListFilter

	Status  *Status
	DayFrom *types.Day
	DayTo   *types.Day
}
