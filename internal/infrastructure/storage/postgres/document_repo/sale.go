// Package document_repo provides PostgreSQL implementations for document
// repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/sales"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	salesTable     = "doc_sales"
	saleLinesTable = "doc_sale_lines"
)

var saleColumns = []string{
	"id", "number", "day",
	"total_quantity", "total_amount", "total_tax",
	"note", "created_at", "created_by",
}

// SaleRepo implements sales.Repository.
type SaleRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// Compile-time check.
var _ sales.Repository = (*SaleRepo)(nil)

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the sale header.
func (r *SaleRepo) Create(ctx context.Context, sale *sales.Sale) error {
	q := r.builder.Insert(salesTable).
		Columns(saleColumns...).
		Values(
			sale.ID, sale.Number, sale.Day,
			sale.TotalQuantity, sale.TotalAmount, sale.TotalTax,
			sale.Note, sale.CreatedAt, sale.CreatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err, "sale "+sale.Number)
	}

	return nil
}

// GetByID retrieves a sale header.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sales.Sale, error) {
	q := r.builder.Select(saleColumns...).
		From(salesTable).
		Where(squirrel.Eq{"id": saleID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var sale sales.Sale
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &sale, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}

	return &sale, nil
}

// GetLines retrieves lines for a sale.
func (r *SaleRepo) GetLines(ctx context.Context, saleID id.ID) ([]sales.SaleLine, error) {
	q := r.builder.Select(
		"line_id", "line_no", "product_id",
		"quantity", "unit_price", "tax_rate", "tax_amount", "line_total",
	).
		From(saleLinesTable).
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []sales.SaleLine
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines inserts lines for a sale. Lines are append-only; there is no
// delete-and-replace because committed sales never change.
func (r *SaleRepo) SaveLines(ctx context.Context, saleID id.ID, lines []sales.SaleLine) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.builder.Insert(saleLinesTable).
		Columns(
			"line_id", "sale_id", "line_no", "product_id",
			"quantity", "unit_price", "tax_rate", "tax_amount", "line_total",
		)

	for _, line := range lines {
		q = q.Values(
			line.LineID, saleID, line.LineNo, line.ProductID,
			line.Quantity, line.UnitPrice, line.TaxRate, line.TaxAmount, line.LineTotal,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

// SumQuantityByProductDay sums committed sale line quantities for one
// product on one day.
func (r *SaleRepo) SumQuantityByProductDay(ctx context.Context, productID id.ID, day types.Day) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(l.quantity), 0)
		FROM doc_sale_lines l
		JOIN doc_sales s ON s.id = l.sale_id
		WHERE l.product_id = $1 AND s.day = $2
	`

	var sum types.Quantity
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, productID, day).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum sale quantities: %w", err)
	}

	return sum, nil
}

// List retrieves sales with filtering.
func (r *SaleRepo) List(ctx context.Context, filter sales.ListFilter) (domain.ListResult[*sales.Sale], error) {
	result := domain.ListResult[*sales.Sale]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(prefixed("s", saleColumns)...).
		From(salesTable + " s")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Expr(
			"EXISTS (SELECT 1 FROM doc_sale_lines l WHERE l.sale_id = s.id AND l.product_id = ?)",
			*filter.ProductID,
		))
	}
	if filter.DayFrom != nil {
		q = q.Where(squirrel.GtOrEq{"s.day": *filter.DayFrom})
	}
	if filter.DayTo != nil {
		q = q.Where(squirrel.LtOrEq{"s.day": *filter.DayTo})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"s.number": "%" + filter.Search + "%"})
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	orderBy := "s.day DESC, s.created_at DESC"
	if filter.OrderBy != "" {
		orderBy = filter.OrderBy
	}
	q = q.OrderBy(orderBy)

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select sales: %w", err)
	}

	return result, nil
}

func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}
