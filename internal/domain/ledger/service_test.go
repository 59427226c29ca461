package ledger

import (
	"context"
	"testing"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalogs/product"
)

// fakeLedgerRepo is an in-memory Repository keyed by (product, day).
type fakeLedgerRepo struct {
	records map[string]*DailyStockRecord

	// insertBlocked simulates losing the creation race: InsertIfAbsent
	// reports a conflict and plants the winner's record for the re-fetch.
	insertBlocked bool
	winner        *DailyStockRecord
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{records: make(map[string]*DailyStockRecord)}
}

func key(productID id.ID, day types.Day) string {
	return productID.String() + "/" + day.String()
}

func (f *fakeLedgerRepo) Get(_ context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error) {
	if rec, ok := f.records[key(productID, day)]; ok {
		return rec, nil
	}
	return nil, apperror.NewNotFound("ledger record", key(productID, day))
}

func (f *fakeLedgerRepo) GetForUpdate(ctx context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error) {
	return f.Get(ctx, productID, day)
}

func (f *fakeLedgerRepo) GetLatestBefore(_ context.Context, productID id.ID, day types.Day) (*DailyStockRecord, error) {
	var latest *DailyStockRecord
	for _, rec := range f.records {
		if rec.ProductID != productID || !rec.Day.Before(day) {
			continue
		}
		if latest == nil || latest.Day.Before(rec.Day) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, apperror.NewNotFound("ledger record", productID.String())
	}
	return latest, nil
}

func (f *fakeLedgerRepo) InsertIfAbsent(_ context.Context, rec *DailyStockRecord) (bool, error) {
	k := key(rec.ProductID, rec.Day)
	if f.insertBlocked {
		f.insertBlocked = false
		f.records[k] = f.winner
		return false, nil
	}
	if _, ok := f.records[k]; ok {
		return false, nil
	}
	f.records[k] = rec
	return true, nil
}

func (f *fakeLedgerRepo) Update(_ context.Context, rec *DailyStockRecord) error {
	f.records[key(rec.ProductID, rec.Day)] = rec
	return nil
}

func (f *fakeLedgerRepo) ListRange(_ context.Context, from, to types.Day, _ *string) ([]*DailyStockRecord, error) {
	var out []*DailyStockRecord
	for _, rec := range f.records {
		if !rec.Day.Before(from) && !to.Before(rec.Day) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) ListByDay(ctx context.Context, day types.Day, category *string) ([]*DailyStockRecord, error) {
	return f.ListRange(ctx, day, day, category)
}

// fakeProductRepo serves a fixed set of products.
type fakeProductRepo struct {
	products map[id.ID]*product.Product
}

func (f *fakeProductRepo) Create(_ context.Context, p *product.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	if p, ok := f.products[productID]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("product", productID.String())
}

func (f *fakeProductRepo) GetBySKU(_ context.Context, sku string) (*product.Product, error) {
	for _, p := range f.products {
		if p.SKU == sku {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("product", sku)
}

func (f *fakeProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return f.GetByID(ctx, productID)
}

func (f *fakeProductRepo) AdjustStock(_ context.Context, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	p, ok := f.products[productID]
	if !ok {
		return 0, apperror.NewNotFound("product", productID.String())
	}
	if p.StockQuantity+delta < 0 {
		return 0, apperror.NewInsufficientStock(productID.String(), -delta, p.StockQuantity)
	}
	p.StockQuantity += delta
	return p.StockQuantity, nil
}

func (f *fakeProductRepo) SetCost(_ context.Context, productID id.ID, cost types.Money) error {
	p, ok := f.products[productID]
	if !ok {
		return apperror.NewNotFound("product", productID.String())
	}
	p.CostPerUnit = cost
	return nil
}

func (f *fakeProductRepo) Update(_ context.Context, p *product.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) ListActive(_ context.Context) ([]*product.Product, error) {
	var out []*product.Product
	for _, p := range f.products {
		if p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) List(_ context.Context, _ product.ListFilter) (domain.ListResult[*product.Product], error) {
	return domain.ListResult[*product.Product]{}, nil
}

func newTestService(repo *fakeLedgerRepo, products ...*product.Product) *Service {
	productRepo := &fakeProductRepo{products: make(map[id.ID]*product.Product)}
	for _, p := range products {
		productRepo.products[p.ID] = p
	}
	return NewService(repo, product.NewService(productRepo))
}

func TestGetOrCreate_FirstDayStartsFromZero(t *testing.T) {
	p := product.New("SKU-001", "Green Tea 250g", types.MustMoney("100"))
	repo := newFakeLedgerRepo()
	svc := newTestService(repo, p)

	rec, err := svc.GetOrCreate(context.Background(), p.ID, types.MustDay("2026-08-31"))
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if rec.OpeningStock != 0 {
		t.Errorf("opening mismatch\nwant: 0\ngot:  %d", rec.OpeningStock)
	}
	if rec.CostPerUnit.String() != "100" {
		t.Errorf("cost basis mismatch: %s", rec.CostPerUnit)
	}
}

func TestGetOrCreate_RollsClosingForward(t *testing.T) {
	p := product.New("SKU-001", "Green Tea 250g", types.MustMoney("100"))
	repo := newFakeLedgerRepo()
	svc := newTestService(repo, p)

	ctx := context.Background()
	monday := types.MustDay("2026-08-31")

	rec, err := svc.GetOrCreate(ctx, p.ID, monday)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := rec.ApplyInward(50, nil); err != nil {
		t.Fatalf("ApplyInward failed: %v", err)
	}
	if err := rec.ApplySale(12); err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}
	if err := svc.Save(ctx, rec); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The next business day opens where monday closed, even after a gap.
	next, err := svc.GetOrCreate(ctx, p.ID, monday.Next().Next())
	if err != nil {
		t.Fatalf("GetOrCreate next day failed: %v", err)
	}
	if next.OpeningStock != 38 {
		t.Errorf("opening mismatch\nwant: 38\ngot:  %d", next.OpeningStock)
	}
	if next.ClosingStock != 38 {
		t.Errorf("closing mismatch\nwant: 38\ngot:  %d", next.ClosingStock)
	}
}

func TestGetOrCreate_LostRaceFetchesWinner(t *testing.T) {
	p := product.New("SKU-001", "Green Tea 250g", types.MustMoney("100"))
	repo := newFakeLedgerRepo()
	svc := newTestService(repo, p)

	day := types.MustDay("2026-08-31")
	winner := NewDailyStockRecord(p.ID, day, 7, types.MustMoney("100"))
	repo.insertBlocked = true
	repo.winner = winner

	rec, err := svc.GetOrCreate(context.Background(), p.ID, day)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if rec.ID != winner.ID {
		t.Error("expected the concurrent writer's record, got a new one")
	}
	if rec.OpeningStock != 7 {
		t.Errorf("opening mismatch\nwant: 7\ngot:  %d", rec.OpeningStock)
	}
}

func TestSave_RejectsBrokenInvariant(t *testing.T) {
	p := product.New("SKU-001", "Green Tea 250g", types.MustMoney("100"))
	repo := newFakeLedgerRepo()
	svc := newTestService(repo, p)

	rec := NewDailyStockRecord(p.ID, types.MustDay("2026-08-31"), 10, types.MustMoney("100"))
	rec.ClosingStock = 999

	err := svc.Save(context.Background(), rec)
	if !apperror.IsCode(err, apperror.CodeInvariantViolation) {
		t.Fatalf("expected INVARIANT_VIOLATION, got %v", err)
	}
	if _, ok := repo.records[key(rec.ProductID, rec.Day)]; ok {
		t.Error("broken record must not be persisted")
	}
}
