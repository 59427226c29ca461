package sales

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"stockbook/internal/core/apperror"
	appctx "stockbook/internal/core/context"
	"stockbook/internal/core/id"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/audit"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/ledger"
	"stockbook/pkg/logger"
	"stockbook/pkg/numerator"
)

// maxApplyAttempts bounds the retry loop for lock contention. Retries
// only fire on retryable errors (lock timeouts, insert races).
const maxApplyAttempts = 3

// NumberAllocator assigns document numbers.
type NumberAllocator interface {
	Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error)
}

// Service executes the sale stock-decrement transaction.
type Service struct {
	repo      Repository
	products  *product.Service
	ledger    *ledger.Service
	txManager tx.Manager
	numbers   NumberAllocator
	auditor   audit.Recorder
}

// NewService creates a new sales service.
func NewService(
	repo Repository,
	products *product.Service,
	ledgerSvc *ledger.Service,
	txManager tx.Manager,
	numbers NumberAllocator,
	auditor audit.Recorder,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		ledger:    ledgerSvc,
		txManager: txManager,
		numbers:   numbers,
		auditor:   auditor,
	}
}

// ApplySaleCommand describes one sale to record.
type ApplySaleCommand struct {
	Day   types.Day
	Note  string
	Lines []ApplySaleLine
}

// ApplySaleLine is one line of the command.
type ApplySaleLine struct {
	ProductID id.ID
	Quantity  types.Quantity
	UnitPrice types.Money
	TaxRate   string
}

// ApplySaleResult reports the committed sale and the stock level of each
// touched product after the decrement.
type ApplySaleResult struct {
	Sale        *Sale
	StockLevels map[id.ID]types.Quantity
}

// ApplySale records a sale and decrements stock for every line in one
// atomic transaction. Either every decrement applies or none does; a
// single short product aborts the whole sale with InsufficientStock.
//
// Lock contention surfaces as a retryable error; the service retries a
// bounded number of times with jittered backoff before giving up.
func (s *Service) ApplySale(ctx context.Context, cmd ApplySaleCommand) (*ApplySaleResult, error) {
	sale := NewSale(cmd.Day)
	sale.Note = cmd.Note
	sale.CreatedBy = appctx.GetUserID(ctx)
	for _, line := range cmd.Lines {
		sale.AddLine(line.ProductID, line.Quantity, line.UnitPrice, line.TaxRate)
	}

	if err := sale.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, numerator.DefaultConfig("SALE"), time.Now())
	if err != nil {
		return nil, fmt.Errorf("allocate sale number: %w", err)
	}
	sale.Number = number

	var result *ApplySaleResult
	err = s.withRetry(ctx, "apply sale", func(ctx context.Context) error {
		var txErr error
		result, txErr = s.applySaleTx(ctx, sale)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, sale)

	logger.Info(ctx, "sale applied",
		"sale_id", sale.ID,
		"number", sale.Number,
		"day", sale.Day.String(),
		"lines", len(sale.Lines),
		"total_quantity", sale.TotalQuantity,
	)
	return result, nil
}

// applySaleTx runs the decrement for one attempt. Products are processed
// in ascending ID order so concurrent multi-line sales acquire row locks
// in the same sequence and cannot deadlock each other.
func (s *Service) applySaleTx(ctx context.Context, sale *Sale) (*ApplySaleResult, error) {
	levels := make(map[id.ID]types.Quantity)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		byProduct := sale.QuantityByProduct()
		for _, productID := range sortedProductIDs(byProduct) {
			qty := byProduct[productID]

			p, err := s.products.GetForUpdate(ctx, productID)
			if err != nil {
				return err
			}
			if !p.IsActive() {
				return apperror.NewProductInactive(p.ID.String())
			}
			if p.StockQuantity < qty {
				return apperror.NewInsufficientStock(p.ID.String(), qty, p.StockQuantity)
			}

			newQty, err := s.products.AdjustStock(ctx, productID, -qty)
			if err != nil {
				return err
			}
			levels[productID] = newQty

			rec, err := s.ledger.GetOrCreateForUpdate(ctx, productID, sale.Day)
			if err != nil {
				return err
			}
			if err := rec.ApplySale(qty); err != nil {
				return err
			}
			if err := s.ledger.Save(ctx, rec); err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, sale); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveLines(ctx, sale.ID, sale.Lines); err != nil {
			return fmt.Errorf("save sale lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ApplySaleResult{Sale: sale, StockLevels: levels}, nil
}

// Get retrieves a sale with its lines.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*Sale, error) {
	sale, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("get sale lines: %w", err)
	}
	sale.Lines = lines
	return sale, nil
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	return s.repo.List(ctx, filter)
}

// VerifySoldAgreement checks that the ledger's sold quantity for the
// product and day equals the sum of committed sale lines. A mismatch is
// a consistency failure, never silently corrected.
func (s *Service) VerifySoldAgreement(ctx context.Context, productID id.ID, day types.Day) error {
	rec, err := s.ledger.Get(ctx, productID, day)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}

	soldFromSales, err := s.repo.SumQuantityByProductDay(ctx, productID, day)
	if err != nil {
		return fmt.Errorf("sum sale quantities: %w", err)
	}

	if rec.SoldQuantity != soldFromSales {
		return apperror.NewInvariantViolation("ledger sold quantity disagrees with sale history").
			WithDetail("product_id", productID.String()).
			WithDetail("day", day.String()).
			WithDetail("ledger_sold", rec.SoldQuantity).
			WithDetail("sales_sum", soldFromSales)
	}
	return nil
}

// withRetry re-runs fn on retryable contention errors with jittered
// backoff. Non-retryable errors propagate immediately.
func (s *Service) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxApplyAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !apperror.IsRetryable(err) {
			return err
		}
		if attempt == maxApplyAttempts {
			break
		}

		backoff := time.Duration(attempt) * 50 * time.Millisecond
		backoff += time.Duration(rand.Int63n(int64(25 * time.Millisecond)))
		logger.Warn(ctx, "retrying after contention",
			"operation", op,
			"attempt", attempt,
			"backoff", backoff.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}

// recordAudit writes the trail entry after commit. Failures are logged
// and swallowed; the sale already committed.
func (s *Service) recordAudit(ctx context.Context, sale *Sale) {
	err := s.auditor.Record(ctx, audit.Event{
		EntityType: "sale",
		EntityID:   sale.ID,
		Action:     audit.ActionApplySale,
		UserID:     sale.CreatedBy,
		Changes:    sale,
	})
	if err != nil {
		logger.Warn(ctx, "audit record failed", "sale_id", sale.ID, "error", err.Error())
	}
}

func sortedProductIDs(byProduct map[id.ID]types.Quantity) []id.ID {
	ids := make([]id.ID, 0, len(byProduct))
	for productID := range byProduct {
		ids = append(ids, productID)
	}
	slices.SortFunc(ids, func(a, b id.ID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}
