package reconciliation

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

const maxAttempts = 3

// NumberAllocator assigns document numbers.
type NumberAllocator interface {
	Next(ctx context.Context, cfg numerator.Config, period time.Time) (string, error)
}

// Service drives the reconciliation workflow.
type Service struct {
	repo      Repository
	products  *product.Service
	ledger    *ledger.Service
	txManager tx.Manager
	numbers   NumberAllocator
	auditor   audit.Recorder
	policy    *VariancePolicy
}

// NewService creates a new reconciliation service.
func NewService(
	repo Repository,
	products *product.Service,
	ledgerSvc *ledger.Service,
	txManager tx.Manager,
	numbers NumberAllocator,
	auditor audit.Recorder,
	policy *VariancePolicy,
) *Service {
	if policy == nil {
		policy = MustVariancePolicy(DefaultReasonPolicy)
	}
	return &Service{
		repo:      repo,
		products:  products,
		ledger:    ledgerSvc,
		txManager: txManager,
		numbers:   numbers,
		auditor:   auditor,
		policy:    policy,
	}
}

// CreateCommand opens a reconciliation for one day.
type CreateCommand struct {
	Day  types.Day
	Note string
}

// Create opens a count session for the day, snapshotting every active
// product's live stock counter as system stock. The live counter, not
// the ledger's closing, is what a physical count is compared against:
// if the two have drifted apart the variance must surface it, not hide
// it. At most one reconciliation may exist per day; a second attempt
// fails with DuplicateReconciliation regardless of the first one's
// status.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Reconciliation, error) {
	if cmd.Day.IsZero() {
		return nil, apperror.NewValidation("reconciliation date is required").
			WithDetail("field", "day")
	}

	active, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}

	rec := New(cmd.Day)
	rec.Note = cmd.Note
	rec.CreatedBy = appctx.GetUserID(ctx)

	for _, p := range active {
		// Materialize the day's ledger record so finalize has a row to
		// annotate; its cost is the day's valuation basis.
		day, err := s.ledger.GetOrCreate(ctx, p.ID, cmd.Day)
		if err != nil {
			return nil, fmt.Errorf("snapshot stock for %s: %w", p.SKU, err)
		}
		rec.AddItem(p.ID, p.SKU, p.Name, p.StockQuantity, day.CostPerUnit)
	}

	if err := rec.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numbers.Next(ctx, numerator.DefaultConfig("RECON"), time.Now())
	if err != nil {
		return nil, fmt.Errorf("allocate reconciliation number: %w", err)
	}
	rec.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, rec); err != nil {
			return err
		}
		return s.repo.SaveItems(ctx, rec.ID, rec.Items)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, rec.ID, audit.ActionCreateReconciliation, rec.CreatedBy, rec)

	logger.Info(ctx, "reconciliation created",
		"reconciliation_id", rec.ID,
		"number", rec.Number,
		"day", rec.Day.String(),
		"items", len(rec.Items),
	)
	return rec, nil
}

// CountCommand records one counted quantity.
type CountCommand struct {
	ReconciliationID id.ID
	ProductID        id.ID
	PhysicalStock    types.Quantity
	Reason           string
}

// RecordCount writes a physical count for one product. Recounts simply
// overwrite; the last count wins. The variance policy decides whether
// the count needs a written reason.
func (s *Service) RecordCount(ctx context.Context, cmd CountCommand) (*Item, error) {
	countedBy := appctx.GetUserID(ctx)
	now := time.Now().UTC()

	var counted *Item
	err := s.withRetry(ctx, "record count", func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			rec, err := s.repo.GetForUpdate(ctx, cmd.ReconciliationID)
			if err != nil {
				return err
			}

			item, err := rec.RecordCount(cmd.ProductID, cmd.PhysicalStock, cmd.Reason, countedBy, now)
			if err != nil {
				return err
			}

			required, err := s.policy.ReasonRequired(*item.Variance, item.SystemStock, *item.VarianceValue)
			if err != nil {
				return err
			}
			if required && cmd.Reason == "" {
				return apperror.NewValidation("variance requires a reason").
					WithDetail("field", "reason").
					WithDetail("variance", *item.Variance).
					WithDetail("sku", item.SKU)
			}

			if err := s.repo.UpdateItem(ctx, rec.ID, item); err != nil {
				return err
			}
			if err := s.repo.Update(ctx, rec); err != nil {
				return err
			}
			counted = item
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, cmd.ReconciliationID, audit.ActionUpdatePhysicalStock, countedBy, counted)
	return counted, nil
}

// Complete moves the reconciliation to completed once every item is
// counted.
func (s *Service) Complete(ctx context.Context, reconID id.ID) (*Reconciliation, error) {
	var rec *Reconciliation
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		rec, err = s.repo.GetForUpdate(ctx, reconID)
		if err != nil {
			return err
		}
		if err := rec.Complete(); err != nil {
			return err
		}
		return s.repo.Update(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "reconciliation completed",
		"reconciliation_id", rec.ID,
		"total_variance_value", rec.TotalVarianceValue(),
	)
	return rec, nil
}

// Finalize approves the reconciliation and annotates the ledger with
// every counted quantity. Partial counts are allowed: items never
// counted are skipped, not blocked on. Annotations carry the physical
// count, variance, approver and timestamp; the ledger's arithmetic
// fields are never modified.
//
// Each item is annotated in its own transaction and flagged when done,
// so a crash mid-way leaves the reconciliation unapproved and a re-run
// picks up where it stopped. The terminal approved status is only
// written after every annotation landed.
func (s *Service) Finalize(ctx context.Context, reconID id.ID, note string) (*Reconciliation, error) {
	approvedBy := appctx.GetUserID(ctx)
	now := time.Now().UTC()

	rec, err := s.repo.GetByID(ctx, reconID)
	if err != nil {
		return nil, err
	}
	if rec.Status == StatusApproved {
		return nil, apperror.NewTerminalState("reconciliation", string(rec.Status))
	}

	for _, item := range rec.CountedItems() {
		if item.Annotated {
			continue
		}
		if err := s.annotateItem(ctx, rec, item, approvedBy, now); err != nil {
			return nil, fmt.Errorf("annotate ledger for %s: %w", item.SKU, err)
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		locked, err := s.repo.GetForUpdate(ctx, reconID)
		if err != nil {
			return err
		}
		if err := locked.Approve(approvedBy, note, now); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, locked); err != nil {
			return err
		}
		rec = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, rec.ID, audit.ActionFinalizeReconciliation, approvedBy, rec)

	logger.Info(ctx, "reconciliation approved",
		"reconciliation_id", rec.ID,
		"number", rec.Number,
		"day", rec.Day.String(),
		"approved_by", approvedBy,
	)
	return rec, nil
}

// annotateItem writes one count onto the day's ledger record.
func (s *Service) annotateItem(ctx context.Context, rec *Reconciliation, item *Item, approvedBy string, at time.Time) error {
	return s.withRetry(ctx, "annotate ledger", func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			day, err := s.ledger.GetOrCreateForUpdate(ctx, item.ProductID, rec.Day)
			if err != nil {
				return err
			}
			day.Annotate(*item.PhysicalStock, approvedBy, at)
			if err := s.ledger.Save(ctx, day); err != nil {
				return err
			}
			return s.repo.MarkItemAnnotated(ctx, item.ItemID)
		})
	})
}

// Get retrieves a reconciliation with its items.
func (s *Service) Get(ctx context.Context, reconID id.ID) (*Reconciliation, error) {
	rec, err := s.repo.GetByID(ctx, reconID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, reconID)
	if err != nil {
		return nil, fmt.Errorf("get reconciliation items: %w", err)
	}
	rec.Items = items
	return rec, nil
}

// GetByDay retrieves the reconciliation for one day.
func (s *Service) GetByDay(ctx context.Context, day types.Day) (*Reconciliation, error) {
	rec, err := s.repo.GetByDay(ctx, day)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.GetItems(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("get reconciliation items: %w", err)
	}
	rec.Items = items
	return rec, nil
}

// List retrieves reconciliations with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Reconciliation], error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil || !apperror.IsRetryable(err) {
			return err
		}
		if attempt == maxAttempts {
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

func (s *Service) recordAudit(ctx context.Context, entityID id.ID, action audit.Action, userID string, changes any) {
	err := s.auditor.Record(ctx, audit.Event{
		EntityType: "reconciliation",
		EntityID:   entityID,
		Action:     action,
		UserID:     userID,
		Changes:    changes,
	})
	if err != nil {
		logger.Warn(ctx, "audit record failed", "reconciliation_id", entityID, "error", err.Error())
	}
}
