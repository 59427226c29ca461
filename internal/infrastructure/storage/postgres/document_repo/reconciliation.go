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
	"stockbook/internal/domain/reconciliation"
	"stockbook/internal/infrastructure/storage/postgres"
)

const (
	reconciliationsTable     = "doc_reconciliations"
	reconciliationItemsTable = "doc_reconciliation_items"

	// uniqueReconciliationDay is the UNIQUE constraint on day; a violation
	// means a second reconciliation was attempted for the same date.
	uniqueReconciliationDay = "doc_reconciliations_day_key"
)

var reconciliationColumns = []string{
	"id", "number", "day", "status",
	"note", "created_at", "created_by",
	"approved_at", "approved_by", "approval_note",
	"version",
}

var reconciliationItemColumns = []string{
	"item_id", "product_id", "sku", "name",
	"system_stock", "cost_per_unit",
	"physical_stock", "variance", "variance_value", "reason",
	"counted_at", "counted_by", "annotated",
}

// ReconciliationRepo implements reconciliation.Repository.
type ReconciliationRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// Compile-time check.
var _ reconciliation.Repository = (*ReconciliationRepo)(nil)

// NewReconciliationRepo creates a new reconciliation repository.
func NewReconciliationRepo(txManager *postgres.TxManager) *ReconciliationRepo {
	return &ReconciliationRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the reconciliation header. The day's uniqueness
// constraint turns concurrent creates into DuplicateReconciliation.
func (r *ReconciliationRepo) Create(ctx context.Context, rec *reconciliation.Reconciliation) error {
	q := r.builder.Insert(reconciliationsTable).
		Columns(reconciliationColumns...).
		Values(
			rec.ID, rec.Number, rec.Day, rec.Status,
			rec.Note, rec.CreatedAt, rec.CreatedBy,
			rec.ApprovedAt, rec.ApprovedBy, rec.ApprovalNote,
			rec.Version,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, uniqueReconciliationDay) {
			return apperror.NewDuplicateReconciliation(rec.Day.String()).WithCause(err)
		}
		return postgres.TranslateError(err, "reconciliation "+rec.Day.String())
	}

	return nil
}

// GetByID retrieves a reconciliation header.
func (r *ReconciliationRepo) GetByID(ctx context.Context, reconID id.ID) (*reconciliation.Reconciliation, error) {
	q := r.builder.Select(reconciliationColumns...).
		From(reconciliationsTable).
		Where(squirrel.Eq{"id": reconID}).
		Limit(1)

	return r.getOne(ctx, q, reconID.String())
}

// GetByDay retrieves the reconciliation for one day.
func (r *ReconciliationRepo) GetByDay(ctx context.Context, day types.Day) (*reconciliation.Reconciliation, error) {
	q := r.builder.Select(reconciliationColumns...).
		From(reconciliationsTable).
		Where(squirrel.Eq{"day": day}).
		Limit(1)

	return r.getOne(ctx, q, day.String())
}

func (r *ReconciliationRepo) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (*reconciliation.Reconciliation, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec reconciliation.Reconciliation
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("reconciliation", key)
		}
		return nil, fmt.Errorf("get reconciliation: %w", err)
	}

	return &rec, nil
}

// GetForUpdate retrieves the reconciliation with a pessimistic row lock
// and its items loaded.
func (r *ReconciliationRepo) GetForUpdate(ctx context.Context, reconID id.ID) (*reconciliation.Reconciliation, error) {
	sql := `
		SELECT id, number, day, status,
		       note, created_at, created_by,
		       approved_at, approved_by, approval_note,
		       version
		FROM doc_reconciliations
		WHERE id = $1
		FOR UPDATE
	`

	var rec reconciliation.Reconciliation
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, reconID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("reconciliation", reconID.String())
		}
		return nil, postgres.TranslateError(err, "reconciliation "+reconID.String())
	}

	items, err := r.GetItems(ctx, reconID)
	if err != nil {
		return nil, err
	}
	rec.Items = items

	return &rec, nil
}

// Update persists header mutations.
func (r *ReconciliationRepo) Update(ctx context.Context, rec *reconciliation.Reconciliation) error {
	q := r.builder.Update(reconciliationsTable).
		Set("status", rec.Status).
		Set("note", rec.Note).
		Set("approved_at", rec.ApprovedAt).
		Set("approved_by", rec.ApprovedBy).
		Set("approval_note", rec.ApprovalNote).
		Set("version", rec.Version).
		Where(squirrel.Eq{"id": rec.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.TranslateError(err, "reconciliation "+rec.ID.String())
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("reconciliation", rec.ID.String())
	}

	return nil
}

// GetItems retrieves the count sheet ordered by SKU.
func (r *ReconciliationRepo) GetItems(ctx context.Context, reconID id.ID) ([]reconciliation.Item, error) {
	q := r.builder.Select(reconciliationItemColumns...).
		From(reconciliationItemsTable).
		Where(squirrel.Eq{"reconciliation_id": reconID}).
		OrderBy("sku")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []reconciliation.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// SaveItems bulk inserts the initial snapshot. Uses COPY when inside a
// transaction since a full catalog snapshot can be large.
func (r *ReconciliationRepo) SaveItems(ctx context.Context, reconID id.ID, items []reconciliation.Item) error {
	if len(items) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		columns := []string{
			"item_id", "reconciliation_id", "product_id", "sku", "name",
			"system_stock", "cost_per_unit",
			"physical_stock", "variance", "variance_value", "reason",
			"counted_at", "counted_by", "annotated",
		}
		rows := make([][]any, 0, len(items))
		for _, it := range items {
			rows = append(rows, []any{
				it.ItemID, reconID, it.ProductID, it.SKU, it.Name,
				it.SystemStock, it.CostPerUnit,
				it.PhysicalStock, it.Variance, it.VarianceValue, it.Reason,
				it.CountedAt, it.CountedBy, it.Annotated,
			})
		}
		if _, err := inserter.CopyFromSlice(ctx, reconciliationItemsTable, columns, rows); err != nil {
			return fmt.Errorf("copy items: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(reconciliationItemsTable).
		Columns(
			"item_id", "reconciliation_id", "product_id", "sku", "name",
			"system_stock", "cost_per_unit",
			"physical_stock", "variance", "variance_value", "reason",
			"counted_at", "counted_by", "annotated",
		)

	for _, it := range items {
		q = q.Values(
			it.ItemID, reconID, it.ProductID, it.SKU, it.Name,
			it.SystemStock, it.CostPerUnit,
			it.PhysicalStock, it.Variance, it.VarianceValue, it.Reason,
			it.CountedAt, it.CountedBy, it.Annotated,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return nil
}

// UpdateItem persists one counted item.
func (r *ReconciliationRepo) UpdateItem(ctx context.Context, reconID id.ID, item *reconciliation.Item) error {
	q := r.builder.Update(reconciliationItemsTable).
		Set("physical_stock", item.PhysicalStock).
		Set("variance", item.Variance).
		Set("variance_value", item.VarianceValue).
		Set("reason", item.Reason).
		Set("counted_at", item.CountedAt).
		Set("counted_by", item.CountedBy).
		Where(squirrel.Eq{"item_id": item.ItemID, "reconciliation_id": reconID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update item: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("reconciliation item", item.ItemID.String())
	}

	return nil
}

// MarkItemAnnotated flags that the item's count landed on the ledger.
func (r *ReconciliationRepo) MarkItemAnnotated(ctx context.Context, itemID id.ID) error {
	q := r.builder.Update(reconciliationItemsTable).
		Set("annotated", true).
		Where(squirrel.Eq{"item_id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark item annotated: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("reconciliation item", itemID.String())
	}

	return nil
}

// List retrieves reconciliations with filtering.
func (r *ReconciliationRepo) List(ctx context.Context, filter reconciliation.ListFilter) (domain.ListResult[*reconciliation.Reconciliation], error) {
	result := domain.ListResult[*reconciliation.Reconciliation]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(reconciliationColumns...).From(reconciliationsTable)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DayFrom != nil {
		q = q.Where(squirrel.GtOrEq{"day": *filter.DayFrom})
	}
	if filter.DayTo != nil {
		q = q.Where(squirrel.LtOrEq{"day": *filter.DayTo})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"number": "%" + filter.Search + "%"})
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

	orderBy := "day DESC"
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
		return result, fmt.Errorf("select reconciliations: %w", err)
	}

	return result, nil
}
