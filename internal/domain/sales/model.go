// Package sales provides the sale document and the stock-decrement
// transaction, the only writer of the ledger's sold quantities.
package sales

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Sale represents a completed sale with its line items. Line items are
// append-only after the sale commits; they are the audit source for the
// ledger's sold quantities.
type Sale struct {
	ID     id.ID     `db:"id" json:"id"`
	Number string    `db:"number" json:"number"`
	Day    types.Day `db:"day" json:"day"`

	// Totals (calculated from lines)
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`
	TotalTax      types.Money    `db:"total_tax" json:"totalTax"`

	Note      string    `db:"note" json:"note,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`

	Lines []SaleLine `db:"-" json:"lines"`
}

// SaleLine represents one line item of a sale.
type SaleLine struct {
	LineID    id.ID `db:"line_id" json:"lineId"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unitPrice"`
	TaxRate   string         `db:"tax_rate" json:"taxRate"` // "0", "5", "12", "18"
	TaxAmount types.Money    `db:"tax_amount" json:"taxAmount"`
	LineTotal types.Money    `db:"line_total" json:"lineTotal"`
}

// NewSale creates a new sale for the given business day.
func NewSale(day types.Day) *Sale {
	return &Sale{
		ID:        id.New(),
		Day:       day,
		CreatedAt: time.Now().UTC(),
		Lines:     make([]SaleLine, 0),
	}
}

// AddLine adds a line item and recalculates totals.
func (s *Sale) AddLine(productID id.ID, qty types.Quantity, unitPrice types.Money, taxRate string) {
	base := unitPrice.Mul(types.MoneyFromInt(qty))
	tax := base.Mul(taxRatePercent(taxRate)).Div(types.MoneyFromInt(100))

	line := SaleLine{
		LineID:    id.New(),
		LineNo:    len(s.Lines) + 1,
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unitPrice,
		TaxRate:   taxRate,
		TaxAmount: tax,
		LineTotal: base.Add(tax),
	}

	s.Lines = append(s.Lines, line)
	s.recalculateTotals()
}

func (s *Sale) recalculateTotals() {
	s.TotalQuantity = 0
	s.TotalAmount = types.ZeroMoney()
	s.TotalTax = types.ZeroMoney()

	for _, line := range s.Lines {
		s.TotalQuantity += line.Quantity
		s.TotalAmount = s.TotalAmount.Add(line.LineTotal)
		s.TotalTax = s.TotalTax.Add(line.TaxAmount)
	}
}

// Validate checks sale invariants.
func (s *Sale) Validate(ctx context.Context) error {
	if s.Day.IsZero() {
		return apperror.NewValidation("sale date is required").
			WithDetail("field", "day")
	}

	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range s.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Quantity <= 0 {
			return apperror.NewInvalidQuantity("lines.quantity", line.Quantity).
				WithDetail("lineNo", i+1)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// QuantityByProduct aggregates line quantities per product. A sale may
// carry several lines for one product; the stock decrement and the ledger
// increment both work on the aggregate.
func (s *Sale) QuantityByProduct() map[id.ID]types.Quantity {
	byProduct := make(map[id.ID]types.Quantity, len(s.Lines))
	for _, line := range s.Lines {
		byProduct[line.ProductID] += line.Quantity
	}
	return byProduct
}

func taxRatePercent(rate string) types.Money {
	switch rate {
	case "5":
		return types.MoneyFromInt(5)
	case "12":
		return types.MoneyFromInt(12)
	case "18":
		return types.MoneyFromInt(18)
	default:
		return types.ZeroMoney()
	}
}
