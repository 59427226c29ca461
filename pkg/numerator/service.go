// Package numerator provides document auto-numbering.
package numerator

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Service generates sequential document numbers. Numbers are allocated
// with UPDATE ... RETURNING against sys_sequences, so they are
// gap-free and safe under concurrent writers.
type Service struct {
	querier Querier
}

// New creates a new numerator service.
func New(querier Querier) *Service {
	return &Service{querier: querier}
}

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "SALE", "RECON")
	Prefix string

	// PadWidth is the minimum number width (default 5)
	PadWidth int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:   prefix,
		PadWidth: 5,
	}
}

// Next generates the next document number for the period's year.
// Pattern: PREFIX-YEAR-XXXXX (e.g., SALE-2026-00042). The counter
// resets each year.
func (s *Service) Next(ctx context.Context, cfg Config, period time.Time) (string, error) {
	if s == nil || s.querier == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	var num int64
	err := s.querier.QueryRow(ctx, `
        INSERT INTO sys_sequences (sequence_type, year, current_val)
        VALUES ($1, $2, 1)
        ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = sys_sequences.current_val + 1
        RETURNING current_val
	`, cfg.Prefix, period.Year()).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next number: %w", err)
	}

	return formatNumber(cfg, period, num), nil
}

// SetNext sets the counter value (for migration purposes).
func (s *Service) SetNext(ctx context.Context, cfg Config, period time.Time, value int64) error {
	var result int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (sequence_type, year, current_val)
		VALUES ($1, $2, $3)
		ON CONFLICT (sequence_type, year) DO UPDATE SET current_val = $3
		RETURNING current_val
	`, cfg.Prefix, period.Year(), value).Scan(&result)
	return err
}

func formatNumber(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
}

// ParseNumber extracts the numeric part from a formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	var num int64
	if _, err := fmt.Sscanf(formatted, "%*[^-]-%*d-%d", &num); err == nil {
		return num
	}
	return -1
}
