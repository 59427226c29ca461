package product

import (
	"context"
	"fmt"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/pkg/logger"
)

// Service provides business operations for the product registry.
type Service struct {
	repo Repository
}

// NewService creates a new product registry service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create registers a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create product: %w", err)
	}

	logger.Info(ctx, "product created", "id", p.ID, "sku", p.SKU)
	return nil
}

// Get retrieves a product by ID.
func (s *Service) Get(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// GetBySKU retrieves a product by SKU.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	return s.repo.GetBySKU(ctx, sku)
}

// GetForUpdate retrieves a product under an exclusive row lock. Must be
// called within a transaction.
func (s *Service) GetForUpdate(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetForUpdate(ctx, productID)
}

// Update modifies product master data. The live stock counter is not
// updatable here; only AdjustStock moves it.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// AdjustStock applies a delta to the live stock counter and returns the
// new quantity. Callers are expected to hold a transaction scope.
func (s *Service) AdjustStock(ctx context.Context, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	newQty, err := s.repo.AdjustStock(ctx, productID, delta)
	if err != nil {
		return 0, fmt.Errorf("adjust stock for %s: %w", productID, err)
	}
	return newQty, nil
}

// SetCost updates the product's current cost basis.
func (s *Service) SetCost(ctx context.Context, productID id.ID, cost types.Money) error {
	if cost.IsNegative() {
		return fmt.Errorf("cost cannot be negative")
	}
	return s.repo.SetCost(ctx, productID, cost)
}

// ListActive returns all active products.
func (s *Service) ListActive(ctx context.Context) ([]*Product, error) {
	return s.repo.ListActive(ctx)
}

// List retrieves products with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error) {
	return s.repo.List(ctx, filter)
}
