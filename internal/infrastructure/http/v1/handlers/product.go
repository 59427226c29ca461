package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/catalogs/product"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ProductHandler serves the product registry endpoints.
type ProductHandler struct {
	*BaseHandler
	service *product.Service
}

// NewProductHandler creates a new product handler.
func NewProductHandler(base *BaseHandler, service *product.Service) *ProductHandler {
	return &ProductHandler{BaseHandler: base, service: service}
}

// Create handles POST /products.
func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cost, err := types.NewMoneyFromString(req.CostPerUnit)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid cost per unit").WithDetail("field", "costPerUnit"))
		return
	}

	p := product.New(req.SKU, req.Name, cost)
	p.Category = req.Category
	p.MinStockLevel = req.MinStockLevel

	if err := h.service.Create(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, p.ID.String())
}

// Get handles GET /products/:id.
func (h *ProductHandler) Get(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// Update handles PUT /products/:id. Master data only; the live stock
// counter moves exclusively through sale and inward operations.
func (h *ProductHandler) Update(c *gin.Context) {
	productID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cost, err := types.NewMoneyFromString(req.CostPerUnit)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid cost per unit").WithDetail("field", "costPerUnit"))
		return
	}

	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	p.Name = req.Name
	p.Category = req.Category
	p.CostPerUnit = cost
	p.MinStockLevel = req.MinStockLevel
	p.Status = product.Status(req.Status)
	p.Touch()

	if err := h.service.Update(c.Request.Context(), p); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, p)
}

// List handles GET /products.
func (h *ProductHandler) List(c *gin.Context) {
	var q dto.ProductListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := product.ListFilter{
		ListFilter: domain.ListFilter{
			Search: q.Search,
			Limit:  q.Limit,
			Offset: q.Offset,
		},
		BelowMinStock: q.BelowMinStock,
	}
	if q.Category != "" {
		filter.Category = &q.Category
	}
	if q.Status != "" {
		st := product.Status(q.Status)
		filter.Status = &st
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
