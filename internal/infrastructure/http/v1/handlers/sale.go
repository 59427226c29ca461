package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/sales"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// SaleHandler serves the sale endpoints.
type SaleHandler struct {
	*BaseHandler
	service *sales.Service
}

// NewSaleHandler creates a new sale handler.
func NewSaleHandler(base *BaseHandler, service *sales.Service) *SaleHandler {
	return &SaleHandler{BaseHandler: base, service: service}
}

// Apply handles POST /sales. The whole sale commits or none of it does.
func (h *SaleHandler) Apply(c *gin.Context) {
	var req dto.ApplySaleRequest
	if !h.BindJSON(c, &req) {
		return
	}

	day, ok := h.ParseDay(c, "day", req.Day)
	if !ok {
		return
	}

	cmd := sales.ApplySaleCommand{
		Day:   day,
		Note:  req.Note,
		Lines: make([]sales.ApplySaleLine, 0, len(req.Lines)),
	}
	for i, line := range req.Lines {
		productID, err := id.Parse(line.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").
				WithDetail("line", i+1).
				WithDetail("value", line.ProductID))
			return
		}
		price, err := types.NewMoneyFromString(line.UnitPrice)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid unit price").
				WithDetail("line", i+1).
				WithDetail("value", line.UnitPrice))
			return
		}
		cmd.Lines = append(cmd.Lines, sales.ApplySaleLine{
			ProductID: productID,
			Quantity:  line.Quantity,
			UnitPrice: price,
			TaxRate:   line.TaxRate,
		})
	}

	result, err := h.service.ApplySale(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /sales/:id.
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	sale, err := h.service.Get(c.Request.Context(), saleID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, sale)
}

// List handles GET /sales.
func (h *SaleHandler) List(c *gin.Context) {
	var q dto.SaleListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := sales.ListFilter{
		ListFilter: domain.ListFilter{
			Search: q.Search,
			Limit:  q.Limit,
			Offset: q.Offset,
		},
	}
	if q.ProductID != "" {
		productID, err := id.Parse(q.ProductID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("value", q.ProductID))
			return
		}
		filter.ProductID = &productID
	}
	if q.DayFrom != "" {
		day, ok := h.ParseDay(c, "dayFrom", q.DayFrom)
		if !ok {
			return
		}
		filter.DayFrom = &day
	}
	if q.DayTo != "" {
		day, ok := h.ParseDay(c, "dayTo", q.DayTo)
		if !ok {
			return
		}
		filter.DayTo = &day
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}
