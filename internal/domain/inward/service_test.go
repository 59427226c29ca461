package inward

import (
	"context"
	"fmt"
	"testing"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/audit"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/domain/ledger"
	"stockbook/pkg/numerator"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNumbers struct{ n int }

func (f *fakeNumbers) Next(_ context.Context, cfg numerator.Config, period time.Time) (string, error) {
	f.n++
	return fmt.Sprintf("%s-%d-%05d", cfg.Prefix, period.Year(), f.n), nil
}

type fakeInwardRepo struct {
	created []*StockInward
}

func (f *fakeInwardRepo) Create(_ context.Context, rec *StockInward) error {
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeInwardRepo) GetByID(_ context.Context, inwardID id.ID) (*StockInward, error) {
	for _, rec := range f.created {
		if rec.ID == inwardID {
			return rec, nil
		}
	}
	return nil, apperror.NewNotFound("stock inward", inwardID.String())
}

func (f *fakeInwardRepo) SumQuantityByProductDay(_ context.Context, productID id.ID, day types.Day) (types.Quantity, error) {
	var total types.Quantity
	for _, rec := range f.created {
		if rec.ProductID == productID && rec.Day.Equal(day) {
			total += rec.Quantity
		}
	}
	return total, nil
}

func (f *fakeInwardRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*StockInward], error) {
	return domain.ListResult[*StockInward]{}, nil
}

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
	return nil, apperror.NewNotFound("product", sku)
}

func (f *fakeProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return f.GetByID(ctx, productID)
}

func (f *fakeProductRepo) AdjustStock(_ context.Context, productID id.ID, delta types.Quantity) (types.Quantity, error) {
	p := f.products[productID]
	p.StockQuantity += delta
	return p.StockQuantity, nil
}

func (f *fakeProductRepo) SetCost(_ context.Context, productID id.ID, cost types.Money) error {
	f.products[productID].CostPerUnit = cost
	return nil
}

func (f *fakeProductRepo) Update(_ context.Context, p *product.Product) error {
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) ListActive(_ context.Context) ([]*product.Product, error) {
	return nil, nil
}

func (f *fakeProductRepo) List(_ context.Context, _ product.ListFilter) (domain.ListResult[*product.Product], error) {
	return domain.ListResult[*product.Product]{}, nil
}

type fakeLedgerRepo struct {
	records map[string]*ledger.DailyStockRecord
}

func ledgerKey(productID id.ID, day types.Day) string {
	return productID.String() + "/" + day.String()
}

func (f *fakeLedgerRepo) Get(_ context.Context, productID id.ID, day types.Day) (*ledger.DailyStockRecord, error) {
	if rec, ok := f.records[ledgerKey(productID, day)]; ok {
		return rec, nil
	}
	return nil, apperror.NewNotFound("ledger record", ledgerKey(productID, day))
}

func (f *fakeLedgerRepo) GetForUpdate(ctx context.Context, productID id.ID, day types.Day) (*ledger.DailyStockRecord, error) {
	return f.Get(ctx, productID, day)
}

func (f *fakeLedgerRepo) GetLatestBefore(_ context.Context, productID id.ID, _ types.Day) (*ledger.DailyStockRecord, error) {
	return nil, apperror.NewNotFound("ledger record", productID.String())
}

func (f *fakeLedgerRepo) InsertIfAbsent(_ context.Context, rec *ledger.DailyStockRecord) (bool, error) {
	k := ledgerKey(rec.ProductID, rec.Day)
	if _, ok := f.records[k]; ok {
		return false, nil
	}
	f.records[k] = rec
	return true, nil
}

func (f *fakeLedgerRepo) Update(_ context.Context, rec *ledger.DailyStockRecord) error {
	f.records[ledgerKey(rec.ProductID, rec.Day)] = rec
	return nil
}

func (f *fakeLedgerRepo) ListRange(_ context.Context, _, _ types.Day, _ *string) ([]*ledger.DailyStockRecord, error) {
	return nil, nil
}

func (f *fakeLedgerRepo) ListByDay(_ context.Context, _ types.Day, _ *string) ([]*ledger.DailyStockRecord, error) {
	return nil, nil
}

type testEnv struct {
	service    *Service
	repo       *fakeInwardRepo
	ledgerRepo *fakeLedgerRepo
}

func newTestEnv(prods ...*product.Product) *testEnv {
	productRepo := &fakeProductRepo{products: make(map[id.ID]*product.Product)}
	for _, p := range prods {
		productRepo.products[p.ID] = p
	}
	productService := product.NewService(productRepo)

	ledgerRepo := &fakeLedgerRepo{records: make(map[string]*ledger.DailyStockRecord)}
	ledgerService := ledger.NewService(ledgerRepo, productService)

	repo := &fakeInwardRepo{}
	service := NewService(repo, productService, ledgerService, fakeTxManager{}, &fakeNumbers{}, audit.Nop{})

	return &testEnv{service: service, repo: repo, ledgerRepo: ledgerRepo}
}

func TestRecordInward_IncrementsStockAndLedger(t *testing.T) {
	p := product.New("SKU-001", "Green Tea 250g", types.MustMoney("100"))
	p.StockQuantity = 10
	env := newTestEnv(p)
	day := types.MustDay("2026-08-31")

	result, err := env.service.RecordInward(context.Background(), RecordInwardCommand{
		ProductID: p.ID,
		Day:       day,
		Quantity:  50,
		Supplier:  "Acme Traders",
	})
	if err != nil {
		t.Fatalf("RecordInward failed: %v", err)
	}

	if result.StockLevel != 60 {
		t.Errorf("stock level mismatch\nwant: 60\ngot:  %d", result.StockLevel)
	}
	if result.Inward.Number == "" {
		t.Error("inward number not assigned")
	}

	rec, err := env.ledgerRepo.Get(context.Background(), p.ID, day)
	if err != nil {
		t.Fatalf("ledger record not created: %v", err)
	}
	if rec.StockInward != 50 {
		t.Errorf("ledger inward mismatch\nwant: 50\ngot:  %d", rec.StockInward)
	}
	if rec.ClosingStock != 50 {
		t.Errorf("ledger closing mismatch\nwant: 50\ngot:  %d", rec.ClosingStock)
	}
	if len(env.repo.created) != 1 {
		t.Errorf("expected 1 receipt persisted, got %d", len(env.repo.created))
	}
}

func TestRecordInward_WithCostResetsBasis(t *testing.T) {
	p := product.New("SKU-001", "Green Tea 250g", types.MustMoney("100"))
	env := newTestEnv(p)
	cost := types.MustMoney("120")

	_, err := env.service.RecordInward(context.Background(), RecordInwardCommand{
		ProductID:   p.ID,
		Day:         types.MustDay("2026-08-31"),
		Quantity:    10,
		CostPerUnit: &cost,
	})
	if err != nil {
		t.Fatalf("RecordInward failed: %v", err)
	}

	if p.CostPerUnit.String() != "120" {
		t.Errorf("product cost not updated: %s", p.CostPerUnit)
	}
	rec, _ := env.ledgerRepo.Get(context.Background(), p.ID, types.MustDay("2026-08-31"))
	if rec.CostPerUnit.String() != "120" {
		t.Errorf("ledger cost basis not updated: %s", rec.CostPerUnit)
	}
}

func TestRecordInward_Validation(t *testing.T) {
	p := product.New("SKU-001", "Green Tea 250g", types.MustMoney("100"))
	env := newTestEnv(p)

	_, err := env.service.RecordInward(context.Background(), RecordInwardCommand{
		ProductID: p.ID,
		Day:       types.MustDay("2026-08-31"),
		Quantity:  0,
	})
	if !apperror.IsCode(err, apperror.CodeInvalidQuantity) {
		t.Errorf("expected INVALID_QUANTITY, got %v", err)
	}

	_, err = env.service.RecordInward(context.Background(), RecordInwardCommand{
		ProductID: p.ID,
		Quantity:  5,
	})
	if !apperror.IsCode(err, apperror.CodeValidation) {
		t.Errorf("expected VALIDATION_ERROR for missing day, got %v", err)
	}
}

func TestRecordInward_InactiveProductRejected(t *testing.T) {
	p := product.New("SKU-001", "Green Tea 250g", types.MustMoney("100"))
	p.Status = product.StatusInactive
	env := newTestEnv(p)

	_, err := env.service.RecordInward(context.Background(), RecordInwardCommand{
		ProductID: p.ID,
		Day:       types.MustDay("2026-08-31"),
		Quantity:  5,
	})
	if !apperror.IsCode(err, apperror.CodeProductInactive) {
		t.Errorf("expected PRODUCT_INACTIVE, got %v", err)
	}
	if len(env.repo.created) != 0 {
		t.Error("no receipt must be persisted for an inactive product")
	}
}
