package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64 // Simulates DB sequence value
	calls        int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.currentValue++
	m.calls++
	return &mockRow{val: m.currentValue}
}

func TestNext_Sequential(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := DefaultConfig("SALE")
	period := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	num, err := svc.Next(ctx, cfg, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SALE-2026-00001" {
		t.Errorf("expected SALE-2026-00001, got %s", num)
	}

	num, err = svc.Next(ctx, cfg, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "SALE-2026-00002" {
		t.Errorf("expected SALE-2026-00002, got %s", num)
	}

	if q.calls != 2 {
		t.Errorf("expected 2 DB calls, got %d", q.calls)
	}
}

func TestNext_PadWidth(t *testing.T) {
	q := &mockQuerier{currentValue: 99998}
	svc := New(q)
	cfg := Config{Prefix: "RECON", PadWidth: 5}
	period := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	num, err := svc.Next(context.Background(), cfg, period)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "RECON-2026-99999" {
		t.Errorf("expected RECON-2026-99999, got %s", num)
	}
}

func TestParseNumber(t *testing.T) {
	if got := ParseNumber("SALE-2026-00042"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := ParseNumber("garbage"); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
