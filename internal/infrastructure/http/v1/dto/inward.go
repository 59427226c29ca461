package dto

// RecordInwardRequest records a stock receipt.
type RecordInwardRequest struct {
	ProductID     string `json:"productId" binding:"required"`
	Day           string `json:"day" binding:"required"`
	Quantity      int64  `json:"quantity" binding:"required"`
	CostPerUnit   string `json:"costPerUnit"`
	Supplier      string `json:"supplier"`
	InvoiceNumber string `json:"invoiceNumber"`
	BatchNumber   string `json:"batchNumber"`
	ExpiryDate    string `json:"expiryDate"`
	Note          string `json:"note"`
}

// InwardListQuery filters the receipt list.
type InwardListQuery struct {
	PageQuery
	ProductID string `form:"productId"`
	DayFrom   string `form:"dayFrom"`
	DayTo     string `form:"dayTo"`
}
