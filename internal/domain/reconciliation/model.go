// Package reconciliation provides the physical count workflow. A
// reconciliation snapshots system stock for one day, collects counted
// quantities, and on approval annotates the ledger without ever touching
// its arithmetic chain.
package reconciliation

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Status represents the reconciliation lifecycle state.
type Status string

const (
	// StatusInProgress means counting is open.
	StatusInProgress Status = "in_progress"
	// StatusCompleted means every item was counted; awaiting approval.
	StatusCompleted Status = "completed"
	// StatusApproved is terminal. No field of an approved reconciliation
	// may ever change.
	StatusApproved Status = "approved"
)

// Reconciliation is one physical count session for a single day.
// At most one reconciliation exists per day; the storage layer enforces
// the uniqueness.
type Reconciliation struct {
	ID     id.ID     `db:"id" json:"id"`
	Number string    `db:"number" json:"number"`
	Day    types.Day `db:"day" json:"day"`
	Status Status    `db:"status" json:"status"`

	Note         string     `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	CreatedBy    string     `db:"created_by" json:"createdBy,omitempty"`
	ApprovedAt   *time.Time `db:"approved_at" json:"approvedAt,omitempty"`
	ApprovedBy   string     `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovalNote string     `db:"approval_note" json:"approvalNote,omitempty"`

	Version int `db:"version" json:"version"`

	Items []Item `db:"-" json:"items"`
}

// Item is one product's row in the count sheet. SystemStock, SKU, Name
// and CostPerUnit are snapshotted at creation so later catalog or ledger
// changes cannot skew the comparison.
type Item struct {
	ItemID    id.ID `db:"item_id" json:"itemId"`
	ProductID id.ID `db:"product_id" json:"productId"`

	SKU         string         `db:"sku" json:"sku"`
	Name        string         `db:"name" json:"name"`
	SystemStock types.Quantity `db:"system_stock" json:"systemStock"`
	CostPerUnit types.Money    `db:"cost_per_unit" json:"costPerUnit"`

	PhysicalStock *types.Quantity `db:"physical_stock" json:"physicalStock,omitempty"`
	Variance      *types.Quantity `db:"variance" json:"variance,omitempty"`
	VarianceValue *types.Money    `db:"variance_value" json:"varianceValue,omitempty"`
	Reason        string          `db:"reason" json:"reason,omitempty"`

	CountedAt *time.Time `db:"counted_at" json:"countedAt,omitempty"`
	CountedBy string     `db:"counted_by" json:"countedBy,omitempty"`

	// Annotated marks that the approved count was written to the ledger.
	// Finalization is resumable; already annotated items are skipped.
	Annotated bool `db:"annotated" json:"-"`
}

// New creates a reconciliation for the given day.
func New(day types.Day) *Reconciliation {
	return &Reconciliation{
		ID:        id.New(),
		Day:       day,
		Status:    StatusInProgress,
		CreatedAt: time.Now().UTC(),
		Version:   1,
		Items:     make([]Item, 0),
	}
}

// AddItem snapshots one product into the count sheet.
func (r *Reconciliation) AddItem(productID id.ID, sku, name string, systemStock types.Quantity, cost types.Money) {
	r.Items = append(r.Items, Item{
		ItemID:      id.New(),
		ProductID:   productID,
		SKU:         sku,
		Name:        name,
		SystemStock: systemStock,
		CostPerUnit: cost,
	})
}

// Validate checks reconciliation invariants.
func (r *Reconciliation) Validate(ctx context.Context) error {
	if r.Day.IsZero() {
		return apperror.NewValidation("reconciliation date is required").
			WithDetail("field", "day")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("reconciliation requires at least one active product")
	}
	return nil
}

// RecordCount writes a counted quantity for one product. Re-counting is
// allowed while the reconciliation is modifiable; the last count wins.
// Variance is derived against the snapshot, never against live stock.
func (r *Reconciliation) RecordCount(productID id.ID, physical types.Quantity, reason, countedBy string, at time.Time) (*Item, error) {
	if err := r.ensureModifiable(); err != nil {
		return nil, err
	}
	if physical < 0 {
		return nil, apperror.NewInvalidQuantity("physicalStock", physical)
	}

	item := r.findItem(productID)
	if item == nil {
		return nil, apperror.NewNotFound("reconciliation item", productID.String()).
			WithDetail("reconciliation_id", r.ID.String())
	}

	variance := physical - item.SystemStock
	varianceValue := types.MoneyFromInt(variance).Mul(item.CostPerUnit)

	item.PhysicalStock = &physical
	item.Variance = &variance
	item.VarianceValue = &varianceValue
	item.Reason = reason
	item.CountedAt = &at
	item.CountedBy = countedBy

	// A recount moves a completed reconciliation back to counting.
	if r.Status == StatusCompleted {
		r.Status = StatusInProgress
	}
	r.Version++
	return item, nil
}

// Complete moves the reconciliation to completed. Every item must be
// counted first.
func (r *Reconciliation) Complete() error {
	if err := r.ensureModifiable(); err != nil {
		return err
	}
	if r.Status != StatusInProgress {
		return apperror.NewBusinessRule(apperror.CodeBusinessRule,
			"only an in_progress reconciliation can be completed")
	}
	for _, item := range r.Items {
		if item.PhysicalStock == nil {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"all items must be counted before completing").
				WithDetail("product_id", item.ProductID.String()).
				WithDetail("sku", item.SKU)
		}
	}
	r.Status = StatusCompleted
	r.Version++
	return nil
}

// Approve moves the reconciliation to the terminal approved state.
// Counting need not be finished: uncounted items simply carry no
// annotation. Completed is an optional gate, not a precondition.
func (r *Reconciliation) Approve(approvedBy, note string, at time.Time) error {
	if r.Status == StatusApproved {
		return apperror.NewTerminalState("reconciliation", string(r.Status))
	}
	r.Status = StatusApproved
	r.ApprovedAt = &at
	r.ApprovedBy = approvedBy
	r.ApprovalNote = note
	r.Version++
	return nil
}

// CountedItems returns the items with a recorded physical count.
func (r *Reconciliation) CountedItems() []*Item {
	counted := make([]*Item, 0, len(r.Items))
	for i := range r.Items {
		if r.Items[i].PhysicalStock != nil {
			counted = append(counted, &r.Items[i])
		}
	}
	return counted
}

// TotalVarianceValue sums the value of all recorded variances.
func (r *Reconciliation) TotalVarianceValue() types.Money {
	total := types.ZeroMoney()
	for _, item := range r.Items {
		if item.VarianceValue != nil {
			total = total.Add(*item.VarianceValue)
		}
	}
	return total
}

func (r *Reconciliation) ensureModifiable() error {
	if r.Status == StatusApproved {
		return apperror.NewTerminalState("reconciliation", string(r.Status))
	}
	return nil
}

func (r *Reconciliation) findItem(productID id.ID) *Item {
	for i := range r.Items {
		if r.Items[i].ProductID == productID {
			return &r.Items[i]
		}
	}
	return nil
}
