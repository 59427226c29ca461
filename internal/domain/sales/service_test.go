package sales

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

// --- fakes ---

// fakeTxManager restores product and ledger state when fn fails, the
// way a real transaction rollback discards partial writes.
type fakeTxManager struct {
	products *fakeProductRepo
	ledger   *fakeLedgerRepo
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	stocks := make(map[id.ID]types.Quantity, len(m.products.products))
	for pid, p := range m.products.products {
		stocks[pid] = p.StockQuantity
	}
	records := make(map[string]ledger.DailyStockRecord, len(m.ledger.records))
	for k, rec := range m.ledger.records {
		records[k] = *rec
	}

	err := fn(ctx)
	if err != nil {
		for pid, qty := range stocks {
			m.products.products[pid].StockQuantity = qty
		}
		m.ledger.records = make(map[string]*ledger.DailyStockRecord, len(records))
		for k := range records {
			rec := records[k]
			m.ledger.records[k] = &rec
		}
	}
	return err
}

type fakeNumbers struct{ n int }

func (f *fakeNumbers) Next(_ context.Context, cfg numerator.Config, period time.Time) (string, error) {
	f.n++
	return fmt.Sprintf("%s-%d-%05d", cfg.Prefix, period.Year(), f.n), nil
}

type fakeSaleRepo struct {
	created []*Sale
	lines   map[id.ID][]SaleLine
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{lines: make(map[id.ID][]SaleLine)}
}

func (f *fakeSaleRepo) Create(_ context.Context, sale *Sale) error {
	f.created = append(f.created, sale)
	return nil
}

func (f *fakeSaleRepo) GetByID(_ context.Context, saleID id.ID) (*Sale, error) {
	for _, s := range f.created {
		if s.ID == saleID {
			return s, nil
		}
	}
	return nil, apperror.NewNotFound("sale", saleID.String())
}

func (f *fakeSaleRepo) GetLines(_ context.Context, saleID id.ID) ([]SaleLine, error) {
	return f.lines[saleID], nil
}

func (f *fakeSaleRepo) SaveLines(_ context.Context, saleID id.ID, lines []SaleLine) error {
	f.lines[saleID] = append(f.lines[saleID], lines...)
	return nil
}

func (f *fakeSaleRepo) SumQuantityByProductDay(_ context.Context, productID id.ID, day types.Day) (types.Quantity, error) {
	var total types.Quantity
	for _, s := range f.created {
		if !s.Day.Equal(day) {
			continue
		}
		for _, line := range f.lines[s.ID] {
			if line.ProductID == productID {
				total += line.Quantity
			}
		}
	}
	return total, nil
}

func (f *fakeSaleRepo) List(_ context.Context, _ ListFilter) (domain.ListResult[*Sale], error) {
	return domain.ListResult[*Sale]{}, nil
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
	f.products[productID].CostPerUnit = cost
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
	saleRepo   *fakeSaleRepo
	ledgerRepo *fakeLedgerRepo
	products   *fakeProductRepo
}

func newTestEnv(prods ...*product.Product) *testEnv {
	productRepo := &fakeProductRepo{products: make(map[id.ID]*product.Product)}
	for _, p := range prods {
		productRepo.products[p.ID] = p
	}
	productService := product.NewService(productRepo)

	ledgerRepo := &fakeLedgerRepo{records: make(map[string]*ledger.DailyStockRecord)}
	ledgerService := ledger.NewService(ledgerRepo, productService)

	saleRepo := newFakeSaleRepo()
	txManager := &fakeTxManager{products: productRepo, ledger: ledgerRepo}
	service := NewService(saleRepo, productService, ledgerService, txManager, &fakeNumbers{}, audit.Nop{})

	return &testEnv{
		service:    service,
		saleRepo:   saleRepo,
		ledgerRepo: ledgerRepo,
		products:   productRepo,
	}
}

func testProduct(sku string, stock types.Quantity) *product.Product {
	p := product.New(sku, "Product "+sku, types.MustMoney("100"))
	p.StockQuantity = stock
	return p
}

// --- tests ---

func TestApplySale_DecrementsStockAndLedger(t *testing.T) {
	p := testProduct("SKU-001", 50)
	env := newTestEnv(p)
	day := types.MustDay("2026-08-31")

	result, err := env.service.ApplySale(context.Background(), ApplySaleCommand{
		Day: day,
		Lines: []ApplySaleLine{
			{ProductID: p.ID, Quantity: 12, UnitPrice: types.MustMoney("149.50"), TaxRate: "18"},
		},
	})
	if err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	if result.Sale.Number == "" {
		t.Error("sale number not assigned")
	}
	if got := result.StockLevels[p.ID]; got != 38 {
		t.Errorf("stock level mismatch\nwant: 38\ngot:  %d", got)
	}
	if p.StockQuantity != 38 {
		t.Errorf("live counter mismatch\nwant: 38\ngot:  %d", p.StockQuantity)
	}

	rec, err := env.ledgerRepo.Get(context.Background(), p.ID, day)
	if err != nil {
		t.Fatalf("ledger record not created: %v", err)
	}
	if rec.SoldQuantity != 12 {
		t.Errorf("ledger sold mismatch\nwant: 12\ngot:  %d", rec.SoldQuantity)
	}
	if rec.ClosingStock != 38 {
		t.Errorf("ledger closing mismatch\nwant: 38\ngot:  %d", rec.ClosingStock)
	}

	if len(env.saleRepo.created) != 1 {
		t.Fatalf("expected 1 sale created, got %d", len(env.saleRepo.created))
	}
	if len(env.saleRepo.lines[result.Sale.ID]) != 1 {
		t.Error("sale lines not persisted")
	}
}

func TestApplySale_MultiLineAggregatesPerProduct(t *testing.T) {
	p := testProduct("SKU-001", 10)
	env := newTestEnv(p)
	day := types.MustDay("2026-08-31")

	// Two lines for the same product decrement once, by the aggregate.
	_, err := env.service.ApplySale(context.Background(), ApplySaleCommand{
		Day: day,
		Lines: []ApplySaleLine{
			{ProductID: p.ID, Quantity: 4, UnitPrice: types.MustMoney("100"), TaxRate: "0"},
			{ProductID: p.ID, Quantity: 3, UnitPrice: types.MustMoney("100"), TaxRate: "0"},
		},
	})
	if err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	if p.StockQuantity != 3 {
		t.Errorf("stock mismatch\nwant: 3\ngot:  %d", p.StockQuantity)
	}
	rec, _ := env.ledgerRepo.Get(context.Background(), p.ID, day)
	if rec.SoldQuantity != 7 {
		t.Errorf("ledger sold mismatch\nwant: 7\ngot:  %d", rec.SoldQuantity)
	}
}

func TestApplySale_InsufficientStockAbortsWholeSale(t *testing.T) {
	inStock := testProduct("SKU-001", 100)
	short := testProduct("SKU-002", 5)
	env := newTestEnv(inStock, short)

	_, err := env.service.ApplySale(context.Background(), ApplySaleCommand{
		Day: types.MustDay("2026-08-31"),
		Lines: []ApplySaleLine{
			{ProductID: inStock.ID, Quantity: 10, UnitPrice: types.MustMoney("100"), TaxRate: "0"},
			{ProductID: short.ID, Quantity: 6, UnitPrice: types.MustMoney("100"), TaxRate: "0"},
		},
	})

	if !apperror.IsCode(err, apperror.CodeInsufficientStock) {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}
	appErr, _ := apperror.AsAppError(err)
	if appErr.Details["shortfall"] != int64(1) {
		t.Errorf("shortfall detail mismatch: %v", appErr.Details["shortfall"])
	}
	if len(env.saleRepo.created) != 0 {
		t.Error("no sale must be persisted when any line is short")
	}

	// The in-stock line's effects roll back with the rest of the sale.
	if inStock.StockQuantity != 100 {
		t.Errorf("in-stock counter must be restored\nwant: 100\ngot:  %d", inStock.StockQuantity)
	}
	if short.StockQuantity != 5 {
		t.Errorf("short counter must be untouched\nwant: 5\ngot:  %d", short.StockQuantity)
	}
	if rec, err := env.ledgerRepo.Get(context.Background(), inStock.ID, types.MustDay("2026-08-31")); err == nil && rec.SoldQuantity != 0 {
		t.Errorf("ledger sold must not survive the abort, got %d", rec.SoldQuantity)
	}
}

func TestApplySale_InactiveProductRejected(t *testing.T) {
	p := testProduct("SKU-001", 50)
	p.Status = product.StatusInactive
	env := newTestEnv(p)

	_, err := env.service.ApplySale(context.Background(), ApplySaleCommand{
		Day: types.MustDay("2026-08-31"),
		Lines: []ApplySaleLine{
			{ProductID: p.ID, Quantity: 1, UnitPrice: types.MustMoney("100"), TaxRate: "0"},
		},
	})

	if !apperror.IsCode(err, apperror.CodeProductInactive) {
		t.Fatalf("expected PRODUCT_INACTIVE, got %v", err)
	}
	if p.StockQuantity != 50 {
		t.Errorf("stock must be untouched, got %d", p.StockQuantity)
	}
}

func TestVerifySoldAgreement(t *testing.T) {
	p := testProduct("SKU-001", 50)
	env := newTestEnv(p)
	ctx := context.Background()
	day := types.MustDay("2026-08-31")

	if _, err := env.service.ApplySale(ctx, ApplySaleCommand{
		Day: day,
		Lines: []ApplySaleLine{
			{ProductID: p.ID, Quantity: 12, UnitPrice: types.MustMoney("100"), TaxRate: "0"},
		},
	}); err != nil {
		t.Fatalf("ApplySale failed: %v", err)
	}

	if err := env.service.VerifySoldAgreement(ctx, p.ID, day); err != nil {
		t.Errorf("agreement check failed on consistent state: %v", err)
	}

	// Tamper with the ledger; the check must refuse to paper over it.
	rec, _ := env.ledgerRepo.Get(ctx, p.ID, day)
	rec.SoldQuantity = 99
	rec.ClosingStock = rec.OpeningStock + rec.StockInward - rec.SoldQuantity

	err := env.service.VerifySoldAgreement(ctx, p.ID, day)
	if !apperror.IsCode(err, apperror.CodeInvariantViolation) {
		t.Fatalf("expected INVARIANT_VIOLATION, got %v", err)
	}

	// A day with no ledger record is trivially consistent.
	if err := env.service.VerifySoldAgreement(ctx, p.ID, day.Next()); err != nil {
		t.Errorf("missing ledger day should pass: %v", err)
	}
}
