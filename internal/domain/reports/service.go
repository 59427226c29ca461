package reports

import (
	"context"
	"fmt"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/tx"
	"stockbook/internal/core/types"
)

// Service provides report generation operations.
type Service struct {
	repo      Repository
	txManager tx.ReadOnlyManager
}

// NewService creates a new reports service.
func NewService(repo Repository, txManager tx.ReadOnlyManager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

// GetDailySummary builds the day's summary with aggregate totals.
func (s *Service) GetDailySummary(ctx context.Context, filter DailySummaryFilter) (*DailySummary, error) {
	if filter.Day.IsZero() {
		return nil, apperror.NewValidation("report date is required").
			WithDetail("field", "day")
	}

	var rows []DailySummaryRow
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.GetDailySummaryRows(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get daily summary: %w", err)
	}

	summary := &DailySummary{
		Day:        filter.Day,
		Rows:       rows,
		TotalValue: types.ZeroMoney(),
	}
	for _, row := range rows {
		summary.TotalInward += row.StockInward
		summary.TotalSold += row.SoldQuantity
		summary.TotalValue = summary.TotalValue.Add(row.StockValue)
		if row.BelowMinStock {
			summary.BelowMinCount++
		}
	}

	return summary, nil
}

// GetMovementReport builds the turnover report over a date range.
func (s *Service) GetMovementReport(ctx context.Context, filter MovementFilter) (*MovementReport, error) {
	if filter.From.IsZero() || filter.To.IsZero() {
		return nil, apperror.NewValidation("from and to dates are required")
	}
	if filter.To.Before(filter.From) {
		return nil, apperror.NewValidation("date range end precedes start")
	}

	var rows []MovementRow
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		rows, err = s.repo.GetMovementRows(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get movement report: %w", err)
	}

	return &MovementReport{
		From: filter.From,
		To:   filter.To,
		Rows: rows,
	}, nil
}
