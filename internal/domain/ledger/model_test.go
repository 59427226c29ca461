package ledger

import (
	"testing"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

func TestNewDailyStockRecord_DerivesClosing(t *testing.T) {
	rec := NewDailyStockRecord(id.New(), types.MustDay("2026-08-31"), 38, types.MustMoney("100"))

	if rec.ClosingStock != 38 {
		t.Errorf("closing mismatch\nwant: 38\ngot:  %d", rec.ClosingStock)
	}
	if rec.StockValue.String() != "3800" {
		t.Errorf("stock value mismatch\nwant: 3800\ngot:  %s", rec.StockValue)
	}
	if err := rec.CheckInvariant(); err != nil {
		t.Errorf("fresh record violates invariant: %v", err)
	}
}

func TestDailyStockRecord_DayFlow(t *testing.T) {
	cost := types.MustMoney("100")
	rec := NewDailyStockRecord(id.New(), types.MustDay("2026-08-31"), 0, cost)

	if err := rec.ApplyInward(50, &cost); err != nil {
		t.Fatalf("ApplyInward failed: %v", err)
	}
	if err := rec.ApplySale(12); err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	if rec.OpeningStock != 0 || rec.StockInward != 50 || rec.SoldQuantity != 12 {
		t.Errorf("components mismatch: opening=%d inward=%d sold=%d",
			rec.OpeningStock, rec.StockInward, rec.SoldQuantity)
	}
	if rec.ClosingStock != 38 {
		t.Errorf("closing mismatch\nwant: 38\ngot:  %d", rec.ClosingStock)
	}
	if rec.StockValue.String() != "3800" {
		t.Errorf("stock value mismatch\nwant: 3800\ngot:  %s", rec.StockValue)
	}
}

func TestApplyInward_ResetsCostBasis(t *testing.T) {
	rec := NewDailyStockRecord(id.New(), types.MustDay("2026-08-31"), 10, types.MustMoney("100"))

	newCost := types.MustMoney("120")
	if err := rec.ApplyInward(5, &newCost); err != nil {
		t.Fatalf("ApplyInward failed: %v", err)
	}
	if rec.CostPerUnit.String() != "120" {
		t.Errorf("cost basis not updated: %s", rec.CostPerUnit)
	}
	if rec.StockValue.String() != "1800" {
		t.Errorf("stock value mismatch\nwant: 1800\ngot:  %s", rec.StockValue)
	}

	// Without an explicit cost the basis stays put.
	if err := rec.ApplyInward(5, nil); err != nil {
		t.Fatalf("ApplyInward failed: %v", err)
	}
	if rec.CostPerUnit.String() != "120" {
		t.Errorf("cost basis should be unchanged: %s", rec.CostPerUnit)
	}
}

func TestApplySale_RejectsNonPositiveQuantity(t *testing.T) {
	rec := NewDailyStockRecord(id.New(), types.MustDay("2026-08-31"), 10, types.MustMoney("100"))

	for _, qty := range []types.Quantity{0, -5} {
		if err := rec.ApplySale(qty); !apperror.IsCode(err, apperror.CodeInvalidQuantity) {
			t.Errorf("qty %d: expected INVALID_QUANTITY, got %v", qty, err)
		}
	}
}

func TestCheckInvariant_DetectsTampering(t *testing.T) {
	rec := NewDailyStockRecord(id.New(), types.MustDay("2026-08-31"), 10, types.MustMoney("100"))

	rec.ClosingStock = 99
	err := rec.CheckInvariant()
	if !apperror.IsCode(err, apperror.CodeInvariantViolation) {
		t.Fatalf("expected INVARIANT_VIOLATION, got %v", err)
	}

	rec.ClosingStock = 10
	rec.SoldQuantity = -1
	rec.ClosingStock = 11
	if err := rec.CheckInvariant(); !apperror.IsCode(err, apperror.CodeInvariantViolation) {
		t.Errorf("negative component should violate invariant, got %v", err)
	}
}

func TestAnnotate_NeverAltersArithmetic(t *testing.T) {
	rec := NewDailyStockRecord(id.New(), types.MustDay("2026-08-31"), 0, types.MustMoney("100"))
	if err := rec.ApplyInward(50, nil); err != nil {
		t.Fatalf("ApplyInward failed: %v", err)
	}
	if err := rec.ApplySale(12); err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	rec.Annotate(35, "manager-1", time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC))

	if rec.ClosingStock != 38 {
		t.Errorf("annotation changed closing stock: %d", rec.ClosingStock)
	}
	if !rec.HasAnnotation() {
		t.Fatal("expected annotation to be recorded")
	}
	if *rec.PhysicalStock != 35 {
		t.Errorf("physical stock mismatch: %d", *rec.PhysicalStock)
	}
	if *rec.StockVariance != -3 {
		t.Errorf("variance mismatch\nwant: -3\ngot:  %d", *rec.StockVariance)
	}
	if *rec.ReconciledBy != "manager-1" {
		t.Errorf("reconciled by mismatch: %s", *rec.ReconciledBy)
	}
	if err := rec.CheckInvariant(); err != nil {
		t.Errorf("annotated record violates invariant: %v", err)
	}
}
