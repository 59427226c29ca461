package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain"
	"stockbook/internal/domain/inward"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// InwardHandler serves the stock inward endpoints.
type InwardHandler struct {
	*BaseHandler
	service *inward.Service
}

// NewInwardHandler creates a new inward handler.
func NewInwardHandler(base *BaseHandler, service *inward.Service) *InwardHandler {
	return &InwardHandler{BaseHandler: base, service: service}
}

// Record handles POST /inward.
func (h *InwardHandler) Record(c *gin.Context) {
	var req dto.RecordInwardRequest
	if !h.BindJSON(c, &req) {
		return
	}

	productID, err := id.Parse(req.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id").WithDetail("value", req.ProductID))
		return
	}
	day, ok := h.ParseDay(c, "day", req.Day)
	if !ok {
		return
	}

	cmd := inward.RecordInwardCommand{
		ProductID:     productID,
		Day:           day,
		Quantity:      req.Quantity,
		Supplier:      req.Supplier,
		InvoiceNumber: req.InvoiceNumber,
		BatchNumber:   req.BatchNumber,
		Note:          req.Note,
	}
	if req.CostPerUnit != "" {
		cost, err := types.NewMoneyFromString(req.CostPerUnit)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid cost per unit").WithDetail("value", req.CostPerUnit))
			return
		}
		cmd.CostPerUnit = &cost
	}
	if req.ExpiryDate != "" {
		expiry, ok := h.ParseDay(c, "expiryDate", req.ExpiryDate)
		if !ok {
			return
		}
		cmd.ExpiryDate = &expiry
	}

	result, err := h.service.RecordInward(c.Request.Context(), cmd)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, result)
}

// Get handles GET /inward/:id.
func (h *InwardHandler) Get(c *gin.Context) {
	inwardID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), inwardID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// List handles GET /inward.
func (h *InwardHandler) List(c *gin.Context) {
	var q dto.InwardListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := inward.ListFilter{
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
