package ledger

import (
	"context"
	"fmt"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/pkg/logger"
)

// maxCreateAttempts bounds the create-or-fetch retry loop. Each retry only
// happens when a concurrent writer won the insert race, so one extra pass
// normally suffices.
const maxCreateAttempts = 3

// Service provides the day roll-forward resolver and read access to the
// ledger store.
type Service struct {
	repo     Repository
	products *product.Service
}

// NewService creates a new ledger service.
func NewService(repo Repository, products *product.Service) *Service {
	return &Service{
		repo:     repo,
		products: products,
	}
}

// GetOrCreate resolves the ledger record for (productID, day), creating it
// on first access by rolling the prior day's closing stock forward into the
// new day's opening stock (zero if the product has no history).
//
// Idempotent under concurrent callers: creation goes through the storage
// uniqueness constraint on (product_id, day) and re-fetches on conflict,
// so two racing calls never fragment the day into two records.
func (s *Service) GetOrCreate(ctx context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		rec, err := s.repo.Get(ctx, productID, day)
		if err == nil {
			return rec, nil
		}
		if !apperror.IsNotFound(err) {
			return nil, fmt.Errorf("get ledger record: %w", err)
		}

		rec, err = s.buildNewDay(ctx, productID, day)
		if err != nil {
			return nil, err
		}

		inserted, err := s.repo.InsertIfAbsent(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("insert ledger record: %w", err)
		}
		if inserted {
			logger.Debug(ctx, "ledger day created",
				"product_id", productID,
				"day", day.String(),
				"opening_stock", rec.OpeningStock,
			)
			return rec, nil
		}
		// Lost the race; loop around and fetch the winner's record.
	}

	return nil, apperror.NewConflict("ledger day creation kept conflicting").
		WithDetail("product_id", productID.String()).
		WithDetail("day", day.String())
}

// GetOrCreateForUpdate resolves the day's record and returns it under an
// exclusive row lock. Must be called within a transaction; this is the
// mutation path used by sale and inward operations.
func (s *Service) GetOrCreateForUpdate(ctx context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error) {
	if _, err := s.GetOrCreate(ctx, productID, day); err != nil {
		return nil, err
	}
	rec, err := s.repo.GetForUpdate(ctx, productID, day)
	if err != nil {
		return nil, fmt.Errorf("lock ledger record: %w", err)
	}
	return rec, nil
}

// buildNewDay assembles the fresh record: opening stock from the most
// recent prior day's closing, cost basis from the product's current cost.
func (s *Service) buildNewDay(ctx context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error) {
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	opening := types.Quantity(0)
	prior, err := s.repo.GetLatestBefore(ctx, productID, day)
	switch {
	case err == nil:
		opening = prior.ClosingStock
	case apperror.IsNotFound(err):
		// First record for this product.
	default:
		return nil, fmt.Errorf("find prior ledger record: %w", err)
	}

	return NewDailyStockRecord(productID, day, opening, p.CostPerUnit), nil
}

// Save persists a mutated record after re-verifying the arithmetic
// invariant. Violations abort with full before/after state logged.
func (s *Service) Save(ctx context.Context, rec *DailyStockRecord) error {
	if err := rec.CheckInvariant(); err != nil {
		logger.Error(ctx, "ledger invariant violated, aborting",
			"product_id", rec.ProductID,
			"day", rec.Day.String(),
			"opening_stock", rec.OpeningStock,
			"stock_inward", rec.StockInward,
			"sold_quantity", rec.SoldQuantity,
			"closing_stock", rec.ClosingStock,
		)
		return err
	}
	return s.repo.Update(ctx, rec)
}

// Get returns the record for (productID, day).
func (s *Service) Get(ctx context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error) {
	return s.repo.Get(ctx, productID, day)
}

// ListRecords returns ledger records in the date range, optionally filtered
// by product category. Every returned record is checked against the
// arithmetic invariant at read time.
func (s *Service) ListRecords(ctx context.Context, from, to types.Day, category *string) ([]*DailyStockRecord, error) {
	if to.Before(from) {
		return nil, apperror.NewValidation("date range end precedes start")
	}

	records, err := s.repo.ListRange(ctx, from, to, category)
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}

	for _, rec := range records {
		if err := rec.CheckInvariant(); err != nil {
			logger.Error(ctx, "stored ledger record violates invariant",
				"product_id", rec.ProductID,
				"day", rec.Day.String(),
			)
			return nil, err
		}
	}

	return records, nil
}

// ListByDay returns all records for one day.
func (s *Service) ListByDay(ctx context.Context, day types.Day, category *string) ([]*DailyStockRecord, error) {
	return s.repo.ListByDay(ctx, day, category)
}
