// Package ledger_repo provides the PostgreSQL implementation of the
// daily stock ledger store.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
	"stockbook/internal/infrastructure/storage/postgres"
)

const ledgerTable = "ledger_daily_stock"

var ledgerColumns = []string{
	"id", "product_id", "day",
	"opening_stock", "stock_inward", "sold_quantity", "closing_stock",
	"cost_per_unit", "stock_value",
	"physical_stock", "stock_variance", "reconciliation_date", "reconciled_by",
	"version", "created_at", "updated_at",
}

// LedgerRepo implements ledger.Repository.
//
// The table carries a UNIQUE (product_id, day) constraint; one row is
// the entire truth for that product's day.
type LedgerRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// Compile-time check.
var _ ledger.Repository = (*LedgerRepo)(nil)

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(txManager *postgres.TxManager) *LedgerRepo {
	return &LedgerRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Get returns the record for (productID, day).
func (r *LedgerRepo) Get(ctx context.Context, productID id.ID, day types.Day) (*ledger.DailyStockRecord, error) {
	q := r.builder.Select(ledgerColumns...).
		From(ledgerTable).
		Where(squirrel.Eq{"product_id": productID, "day": day}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec ledger.DailyStockRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger record", productID.String()+"/"+day.String())
		}
		return nil, fmt.Errorf("get ledger record: %w", err)
	}

	return &rec, nil
}

// GetForUpdate returns the record with a pessimistic row lock. The lock
// covers exactly one (product_id, day) row; writers of other products or
// other days proceed unblocked.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, productID id.ID, day types.Day) (*ledger.DailyStockRecord, error) {
	sql := `
		SELECT id, product_id, day,
		       opening_stock, stock_inward, sold_quantity, closing_stock,
		       cost_per_unit, stock_value,
		       physical_stock, stock_variance, reconciliation_date, reconciled_by,
		       version, created_at, updated_at
		FROM ledger_daily_stock
		WHERE product_id = $1 AND day = $2
		FOR UPDATE
	`

	var rec ledger.DailyStockRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, productID, day); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger record", productID.String()+"/"+day.String())
		}
		return nil, postgres.TranslateError(err, "ledger "+productID.String()+"/"+day.String())
	}

	return &rec, nil
}

// GetLatestBefore returns the most recent record strictly before day.
func (r *LedgerRepo) GetLatestBefore(ctx context.Context, productID id.ID, day types.Day) (*ledger.DailyStockRecord, error) {
	q := r.builder.Select(ledgerColumns...).
		From(ledgerTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Lt{"day": day}).
		OrderBy("day DESC").
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec ledger.DailyStockRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("ledger record", productID.String()+" before "+day.String())
		}
		return nil, fmt.Errorf("get latest ledger record: %w", err)
	}

	return &rec, nil
}

// InsertIfAbsent inserts the record unless its (product_id, day) slot is
// already taken. ON CONFLICT DO NOTHING makes the race loss visible as
// zero affected rows instead of an error.
func (r *LedgerRepo) InsertIfAbsent(ctx context.Context, rec *ledger.DailyStockRecord) (bool, error) {
	sql := `
		INSERT INTO ledger_daily_stock (
			id, product_id, day,
			opening_stock, stock_inward, sold_quantity, closing_stock,
			cost_per_unit, stock_value,
			version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (product_id, day) DO NOTHING
	`

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql,
		rec.ID, rec.ProductID, rec.Day,
		rec.OpeningStock, rec.StockInward, rec.SoldQuantity, rec.ClosingStock,
		rec.CostPerUnit, rec.StockValue,
		rec.Version, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger record: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// Update persists a mutated record.
func (r *LedgerRepo) Update(ctx context.Context, rec *ledger.DailyStockRecord) error {
	q := r.builder.Update(ledgerTable).
		Set("stock_inward", rec.StockInward).
		Set("sold_quantity", rec.SoldQuantity).
		Set("closing_stock", rec.ClosingStock).
		Set("cost_per_unit", rec.CostPerUnit).
		Set("stock_value", rec.StockValue).
		Set("physical_stock", rec.PhysicalStock).
		Set("stock_variance", rec.StockVariance).
		Set("reconciliation_date", rec.ReconciliationDate).
		Set("reconciled_by", rec.ReconciledBy).
		Set("version", rec.Version).
		Set("updated_at", rec.UpdatedAt).
		Where(squirrel.Eq{"id": rec.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(err, "ledger "+rec.ProductID.String()+"/"+rec.Day.String())
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("ledger record", rec.ID.String())
	}

	return nil
}

// ListRange returns records with day in [from, to], optionally
// restricted to a product category.
func (r *LedgerRepo) ListRange(ctx context.Context, from, to types.Day, category *string) ([]*ledger.DailyStockRecord, error) {
	q := r.builder.Select(prefixed("l", ledgerColumns)...).
		From(ledgerTable + " l").
		Where(squirrel.GtOrEq{"l.day": from}).
		Where(squirrel.LtOrEq{"l.day": to})

	if category != nil {
		q = q.Join("cat_products p ON p.id = l.product_id").
			Where(squirrel.Eq{"p.category": *category})
	}

	q = q.OrderBy("l.day", "l.product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []*ledger.DailyStockRecord
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select ledger records: %w", err)
	}

	return records, nil
}

// ListByDay returns all records for one day, optionally restricted to a
// product category.
func (r *LedgerRepo) ListByDay(ctx context.Context, day types.Day, category *string) ([]*ledger.DailyStockRecord, error) {
	return r.ListRange(ctx, day, day, category)
}

func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}
