package dto

// CreateProductRequest registers a new product.
type CreateProductRequest struct {
	SKU           string `json:"sku" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Category      string `json:"category"`
	CostPerUnit   string `json:"costPerUnit" binding:"required"`
	MinStockLevel int64  `json:"minStockLevel"`
}

// UpdateProductRequest modifies product master data.
type UpdateProductRequest struct {
	Name          string `json:"name" binding:"required"`
	Category      string `json:"category"`
	CostPerUnit   string `json:"costPerUnit" binding:"required"`
	MinStockLevel int64  `json:"minStockLevel"`
	Status        string `json:"status" binding:"required,oneof=active inactive"`
}

// ProductListQuery filters the product list.
type ProductListQuery struct {
	PageQuery
	Category      string `form:"category"`
	Status        string `form:"status"`
	BelowMinStock bool   `form:"belowMinStock"`
}
