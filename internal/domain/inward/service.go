package inward

import (
	"context"
	"fmt"
	"math/rand"
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

const maxRecordAttempts = 3

// NumberAllocator assigns document numbers.
type NumberAllocator interface {
	Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error)
}

// Service records stock receipts against the ledger.
type Service struct {
	repo      Repository
	products  *product.Service
	ledger    *ledger.Service
	txManager tx.Manager
	numbers   NumberAllocator
	auditor   audit.Recorder
}

// NewService creates a new inward service.
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

// RecordInwardCommand describes one receipt to record.
type RecordInwardCommand struct {
	ProductID     id.ID
	Day           types.Day
	Quantity      types.Quantity
	CostPerUnit   *types.Money
	Supplier      string
	InvoiceNumber string
	BatchNumber   string
	ExpiryDate    *types.Day
	Note          string
}

// RecordInwardResult reports the committed receipt and the product's
// stock level after the increment.
type RecordInwardResult struct {
	Inward     *StockInward
	StockLevel types.Quantity
}

// RecordInward adds received stock to the product's ledger day and live
// counter in one transaction. A receipt with an explicit cost also resets
// the day's cost basis and the product's current cost.
func (s *Service) RecordInward(ctx context.Context, cmd RecordInwardCommand) (*RecordInwardResult, error) {
	rec := NewStockInward(cmd.ProductID, cmd.Day, cmd.Quantity)
	rec.CostPerUnit = cmd.CostPerUnit
	rec.Supplier = cmd.Supplier
	rec.InvoiceNumber = cmd.InvoiceNumber
	rec.BatchNumber = cmd.BatchNumber
	rec.ExpiryDate = cmd.ExpiryDate
	rec.Note = cmd.Note
	rec.CreatedBy = appctx.GetUserID(ctx)

	if err := rec.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, numerator.DefaultConfig("GRN"), time.Now())
	if err != nil {
		return nil, fmt.Errorf("allocate inward number: %w", err)
	}
	rec.Number = number

	var result *RecordInwardResult
	err = s.withRetry(ctx, func(ctx context.Context) error {
		var txErr error
		result, txErr = s.recordInwardTx(ctx, rec)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, rec)

	logger.Info(ctx, "stock inward recorded",
		"inward_id", rec.ID,
		"number", rec.Number,
		"product_id", rec.ProductID,
		"day", rec.Day.String(),
		"quantity", rec.Quantity,
	)
	return result, nil
}

func (s *Service) recordInwardTx(ctx context.Context, rec *StockInward) (*RecordInwardResult, error) {
	var level types.Quantity

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, rec.ProductID)
		if err != nil {
			return err
		}
		if !p.IsActive() {
			return apperror.NewProductInactive(p.ID.String())
		}

		newQty, err := s.products.AdjustStock(ctx, rec.ProductID, rec.Quantity)
		if err != nil {
			return err
		}
		level = newQty

		day, err := s.ledger.GetOrCreateForUpdate(ctx, rec.ProductID, rec.Day)
		if err != nil {
			return err
		}
		if err := day.ApplyInward(rec.Quantity, rec.CostPerUnit); err != nil {
			return err
		}
		if err := s.ledger.Save(ctx, day); err != nil {
			return err
		}

		if rec.CostPerUnit != nil {
			if err := s.products.SetCost(ctx, rec.ProductID, *rec.CostPerUnit); err != nil {
				return fmt.Errorf("update product cost: %w", err)
			}
		}

		if err := s.repo.Create(ctx, rec); err != nil {
			return fmt.Errorf("create inward record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RecordInwardResult{Inward: rec, StockLevel: level}, nil
}

// Get retrieves a receipt by ID.
func (s *Service) Get(ctx context.Context, inwardID id.ID) (*StockInward, error) {
	return s.repo.GetByID(ctx, inwardID)
}

// List retrieves receipts with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*StockInward], error) {
	return s.repo.List(ctx, filter)
}

// VerifyInwardAgreement checks that the ledger's inward quantity for the
// product and day equals the sum of committed receipts.
func (s *Service) VerifyInwardAgreement(ctx context.Context, productID id.ID, day types.Day) error {
	rec, err := s.ledger.Get(ctx, productID, day)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}

	inwardFromReceipts, err := s.repo.SumQuantityByProductDay(ctx, productID, day)
	if err != nil {
		return fmt.Errorf("sum inward quantities: %w", err)
	}

	if rec.StockInward != inwardFromReceipts {
		return apperror.NewInvariantViolation("ledger inward quantity disagrees with receipt history").
			WithDetail("product_id", productID.String()).
			WithDetail("day", day.String()).
			WithDetail("ledger_inward", rec.StockInward).
			WithDetail("receipts_sum", inwardFromReceipts)
	}
	return nil
}

func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxRecordAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !apperror.IsRetryable(err) {
			return err
		}
		if attempt == maxRecordAttempts {
			break
		}

		backoff := time.Duration(attempt) * 50 * time.Millisecond
		backoff += time.Duration(rand.Int63n(int64(25 * time.Millisecond)))
		logger.Warn(ctx, "retrying after contention",
			"operation", "record inward",
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

func (s *Service) recordAudit(ctx context.Context, rec *StockInward) {
	err := s.auditor.Record(ctx, audit.Event{
		EntityType: "stock_inward",
		EntityID:   rec.ID,
		Action:     audit.ActionRecordInward,
		UserID:     rec.CreatedBy,
		Changes:    rec,
	})
	if err != nil {
		logger.Warn(ctx, "audit record failed", "inward_id", rec.ID, "error", err.Error())
	}
}
