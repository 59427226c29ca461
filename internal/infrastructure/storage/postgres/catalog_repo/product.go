// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories.
package catalog_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/infrastructure/storage/postgres"
)

const productsTable = "cat_products"

var productColumns = []string{
	"id", "sku", "name", "category",
	"stock_quantity", "cost_per_unit", "min_stock_level",
	"status", "version", "created_at", "updated_at",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// Compile-time check.
var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns...).
		Values(
			p.ID, p.SKU, p.Name, p.Category,
			p.StockQuantity, p.CostPerUnit, p.MinStockLevel,
			p.Status, p.Version, p.CreatedAt, p.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewConflict("product SKU already exists").
				WithDetail("sku", p.SKU).
				WithCause(err)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// GetBySKU retrieves a product by SKU.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"sku": sku}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", sku)
		}
		return nil, fmt.Errorf("get product by sku: %w", err)
	}

	return &p, nil
}

// GetForUpdate retrieves a product with a pessimistic row lock.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	sql := `
		SELECT id, sku, name, category,
		       stock_quantity, cost_per_unit, min_stock_level,
		       status, version, created_at, updated_at
		FROM cat_products
		WHERE id = $1
		FOR UPDATE
	`

	var p product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, productID); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID.String())
		}
		return nil, postgres.TranslateError(err, "product "+productID.String())
	}

	return &p, nil
}

// AdjustStock atomically applies a delta to the live stock counter.
// The table's non-negative check constraint rejects oversells at the
// storage level, independent of any application check.
func (r *ProductRepo) AdjustStock(ctx context.Context, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	sql := `
		UPDATE cat_products
		SET stock_quantity = stock_quantity + $2,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		RETURNING stock_quantity
	`

	var newQty types.Quantity
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, productID, delta).Scan(&newQty)
	if err != nil {
		// Raw Scan reports a missing row as pgx.ErrNoRows, not the
		// pgxscan wrapper error.
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.NewNotFound("product", productID.String())
		}
		if postgres.IsCheckViolation(err, "") {
			return 0, apperror.NewInsufficientStock(productID.String(), -delta, 0).WithCause(err)
		}
		return 0, postgres.TranslateError(err, "product "+productID.String())
	}

	return newQty, nil
}

// SetCost updates the current cost basis.
func (r *ProductRepo) SetCost(ctx context.Context, productID id.ID, cost types.Money) error {
	q := r.builder.Update(productsTable).
		Set("cost_per_unit", cost).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": productID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set cost: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID.String())
	}

	return nil
}

// Update persists product master data. The stock counter is excluded;
// only AdjustStock moves it.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	q := r.builder.Update(productsTable).
		Set("sku", p.SKU).
		Set("name", p.Name).
		Set("category", p.Category).
		Set("cost_per_unit", p.CostPerUnit).
		Set("min_stock_level", p.MinStockLevel).
		Set("status", p.Status).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return apperror.NewConflict("product SKU already exists").
				WithDetail("sku", p.SKU).
				WithCause(err)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID.String())
	}

	return nil
}

// ListActive returns every active product ordered by SKU.
func (r *ProductRepo) ListActive(ctx context.Context) ([]*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"status": product.StatusActive}).
		OrderBy("sku")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []*product.Product
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("select active products: %w", err)
	}

	return products, nil
}

// List retrieves products with filtering.
func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) (domain.ListResult[*product.Product], error) {
	result := domain.ListResult[*product.Product]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	q := r.builder.Select(productColumns...).From(productsTable)

	if filter.Category != nil {
		q = q.Where(squirrel.Eq{"category": *filter.Category})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.BelowMinStock {
		q = q.Where(squirrel.Expr("stock_quantity < min_stock_level"))
	}
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"sku": searchPattern},
			squirrel.ILike{"name": searchPattern},
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

	orderBy := "sku"
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
		return result, fmt.Errorf("select products: %w", err)
	}

	return result, nil
}
