package reports

import (
	"context"
)

// Repository defines the read-side queries backing reports.
type Repository interface {
	GetDailySummaryRows(ctx context.Context, filter DailySummaryFilter) ([]DailySummaryRow, error)
	GetMovementRows(ctx context.Context, filter MovementFilter) ([]MovementRow, error)
}
