// Package audit defines the append-only audit trail contract.
// Entries are never mutated after creation, only referenced.
package audit

import (
	"context"

	"stockbook/internal/core/id"
)

// Action represents the type of audited ledger operation.
type Action string

const (
	ActionApplySale              Action = "apply_sale"
	ActionRecordInward           Action = "record_inward"
	ActionCreateReconciliation   Action = "create_reconciliation"
	ActionUpdatePhysicalStock    Action = "update_physical_stock"
	ActionFinalizeReconciliation Action = "finalize_reconciliation"
)

// Event is one audit trail entry.
type Event struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     string
	// Changes carries the operation payload; large payloads are
	// compressed by the store.
	Changes any
}

// Recorder persists audit events. Recording is best-effort from the
// caller's perspective: a failed audit write is logged but does not roll
// back the business operation it describes.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Nop is a Recorder that discards events; used in tests.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(ctx context.Context, event Event) error { return nil }
