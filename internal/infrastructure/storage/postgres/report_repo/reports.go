// Package report_repo provides the PostgreSQL read-side for reports.
package report_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/domain/reports"
	"stockbook/internal/infrastructure/storage/postgres"
)

// ReportsRepo implements reports.Repository.
type ReportsRepo struct {
	txManager *postgres.TxManager
}

// Compile-time check.
var _ reports.Repository = (*ReportsRepo)(nil)

// NewReportsRepo creates a new reports repository.
func NewReportsRepo(txManager *postgres.TxManager) *ReportsRepo {
	return &ReportsRepo{txManager: txManager}
}

// GetDailySummaryRows joins the day's ledger rows with the catalog.
func (r *ReportsRepo) GetDailySummaryRows(ctx context.Context, filter reports.DailySummaryFilter) ([]reports.DailySummaryRow, error) {
	sql := `
		SELECT l.product_id, p.sku, p.name, p.category,
		       l.opening_stock, l.stock_inward, l.sold_quantity, l.closing_stock,
		       l.stock_value,
		       l.physical_stock, l.stock_variance,
		       (l.closing_stock < p.min_stock_level) AS below_min_stock
		FROM ledger_daily_stock l
		JOIN cat_products p ON p.id = l.product_id
		WHERE l.day = $1
	`
	args := []any{filter.Day}

	if filter.Category != nil {
		sql += " AND p.category = $2"
		args = append(args, *filter.Category)
	}
	sql += " ORDER BY p.sku"

	var rows []reports.DailySummaryRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select daily summary: %w", err)
	}

	return rows, nil
}

// GetMovementRows aggregates ledger rows per product over the range.
// Opening comes from the earliest row in range, closing from the latest;
// days without a ledger row contribute nothing, which is correct because
// a missing day means no movement.
func (r *ReportsRepo) GetMovementRows(ctx context.Context, filter reports.MovementFilter) ([]reports.MovementRow, error) {
	sql := `
		SELECT l.product_id, p.sku, p.name,
		       (ARRAY_AGG(l.opening_stock ORDER BY l.day ASC))[1]  AS opening_stock,
		       COALESCE(SUM(l.stock_inward), 0)                    AS total_inward,
		       COALESCE(SUM(l.sold_quantity), 0)                   AS total_sold,
		       (ARRAY_AGG(l.closing_stock ORDER BY l.day DESC))[1] AS closing_stock
		FROM ledger_daily_stock l
		JOIN cat_products p ON p.id = l.product_id
		WHERE l.day >= $1 AND l.day <= $2
	`
	args := []any{filter.From, filter.To}
	argIndex := 3

	if filter.ProductID != nil {
		sql += fmt.Sprintf(" AND l.product_id = $%d", argIndex)
		args = append(args, *filter.ProductID)
		argIndex++
	}
	if filter.Category != nil {
		sql += fmt.Sprintf(" AND p.category = $%d", argIndex)
		args = append(args, *filter.Category)
	}

	sql += `
		GROUP BY l.product_id, p.sku, p.name
		ORDER BY p.sku
	`

	var rows []reports.MovementRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select movement rows: %w", err)
	}

	return rows, nil
}
