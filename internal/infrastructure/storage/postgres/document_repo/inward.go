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
	"stockbook/internal/domain/inward"
	"stockbook/internal/infrastructure/storage/postgres"
)

const inwardTable = "doc_stock_inward"

var inwardColumns = []string{
	"id", "number", "product_id", "day",
	"quantity", "cost_per_unit",
	"supplier", "invoice_number", "batch_number", "expiry_date",
	"note", "created_at", "created_by",
}

// InwardRepo implements inward.Repository.
type InwardRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// Compile-time check.
var _ inward.Repository = (*InwardRepo)(nil)

// NewInwardRepo creates a new stock inward repository.
func NewInwardRepo(txManager *postgres.TxManager) *InwardRepo {
	return &InwardRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a receipt. Receipts are immutable; there is no update.
func (r *InwardRepo) Create(ctx context.Context, rec *inward.StockInward) error {
	q := r.builder.Insert(inwardTable).
		Columns(inwardColumns...).
		Values(
			rec.ID, rec.Number, rec.ProductID, rec.Day,
			rec.Quantity, rec.CostPerUnit,
			rec.Supplier, rec.InvoiceNumber, rec.BatchNumber, rec.ExpiryDate,
			rec.Note, rec.CreatedAt, rec.CreatedBy,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.TranslateError(err, "inward "+rec.Number)
	}

	return nil
}

// GetByID retrieves a receipt.
func (r *InwardRepo) GetByID(ctx context.Context, inwardID id.ID) (*inward.StockInward, error) {
	q := r.builder.Select(inwardColumns...).
		From(inwardTable).
		Where(squirrel.Eq{"id": inwardID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec inward.StockInward
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock inward", inwardID.String())
		}
		return nil, fmt.Errorf("get inward: %w", err)
	}

	return &rec, nil
}

// SumQuantityByProductDay sums committed receipt quantities for one
// product on one day.
func (r *InwardRepo) SumQuantityByProductDay(ctx context.Context, productID id.ID, day types.Day) (types.Quantity, error) {
	sql := `
		SELECT COALESCE(SUM(quantity), 0)
		FROM doc_stock_inward
		WHERE product_id = $1 AND day = $2
	`

	var sum types.Quantity
	querier := r.txManager.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, productID, day).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum inward quantities: %w", err)
	}

	return sum, nil
}

// List retrieves receipts with filtering.
func (r *InwardRepo) List(ctx context.Context, filter inward.ListFilter) (domain.ListResult[*inward.StockInward], error) {
	result := domain.ListResult[*inward.StockInward]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(inwardColumns...).From(inwardTable)

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.DayFrom != nil {
		q = q.Where(squirrel.GtOrEq{"day": *filter.DayFrom})
	}
	if filter.DayTo != nil {
		q = q.Where(squirrel.LtOrEq{"day": *filter.DayTo})
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"number": searchPattern},
			squirrel.ILike{"supplier": searchPattern},
			squirrel.ILike{"invoice_number": searchPattern},
		})
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

	orderBy := "day DESC, created_at DESC"
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
		return result, fmt.Errorf("select inward records: %w", err)
	}

	return result, nil
}
