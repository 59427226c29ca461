package dto

// ApplySaleRequest records a sale with one or more lines.
type ApplySaleRequest struct {
	Day   string             `json:"day" binding:"required"`
	Note  string             `json:"note"`
	Lines []ApplySaleLineDTO `json:"lines" binding:"required,min=1,dive"`
}

// ApplySaleLineDTO is one sale line.
type ApplySaleLineDTO struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required"`
	UnitPrice string `json:"unitPrice" binding:"required"`
	TaxRate   string `json:"taxRate" binding:"omitempty,oneof=0 5 12 18"`
}

// SaleListQuery filters the sale list.
type SaleListQuery struct {
	PageQuery
	ProductID string `form:"productId"`
	DayFrom   string `form:"dayFrom"`
	DayTo     string `form:"dayTo"`
}
