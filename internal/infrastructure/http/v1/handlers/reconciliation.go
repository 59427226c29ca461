package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/domain"
	"stockbook/internal/domain/reconciliation"
	"stockbook/internal/infrastructure/http/v1/dto"
)

// ReconciliationHandler serves the stock reconciliation workflow.
type ReconciliationHandler struct {
	*BaseHandler
	service *reconciliation.Service
}

// NewReconciliationHandler creates a new reconciliation handler.
func NewReconciliationHandler(base *BaseHandler, service *reconciliation.Service) *ReconciliationHandler {
	return &ReconciliationHandler{BaseHandler: base, service: service}
}

// Create handles POST /reconciliations. Snapshots system stock for every
// active product; one reconciliation per day.
func (h *ReconciliationHandler) Create(c *gin.Context) {
	var req dto.CreateReconciliationRequest
	if !h.BindJSON(c, &req) {
		return
	}

	day, ok := h.ParseDay(c, "day", req.Day)
	if !ok {
		return
	}

	rec, err := h.service.Create(c.Request.Context(), reconciliation.CreateCommand{
		Day:  day,
		Note: req.Note,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, rec.ID.String())
}

// RecordCount handles PUT /reconciliations/:id/items/:productId.
// Recounts overwrite; the last count wins.
func (h *ReconciliationHandler) RecordCount(c *gin.Context) {
	reconID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}
	productID, ok := h.ParseIDParam(c, "productId")
	if !ok {
		return
	}

	var req dto.RecordCountRequest
	if !h.BindJSON(c, &req) {
		return
	}

	item, err := h.service.RecordCount(c.Request.Context(), reconciliation.CountCommand{
		ReconciliationID: reconID,
		ProductID:        productID,
		PhysicalStock:    req.PhysicalStock,
		Reason:           req.Reason,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, item)
}

// Complete handles POST /reconciliations/:id/complete.
func (h *ReconciliationHandler) Complete(c *gin.Context) {
	reconID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	rec, err := h.service.Complete(c.Request.Context(), reconID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// Approve handles POST /reconciliations/:id/approve. Annotates the
// ledger with counted quantities and moves the session to its terminal
// status. The body is optional; it may carry an approval note.
func (h *ReconciliationHandler) Approve(c *gin.Context) {
	reconID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ApproveReconciliationRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	rec, err := h.service.Finalize(c.Request.Context(), reconID, req.Note)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// Get handles GET /reconciliations/:id.
func (h *ReconciliationHandler) Get(c *gin.Context) {
	reconID, ok := h.ParseIDParam(c, "id")
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), reconID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// GetByDay handles GET /reconciliations/by-day/:day.
func (h *ReconciliationHandler) GetByDay(c *gin.Context) {
	day, ok := h.ParseDay(c, "day", c.Param("day"))
	if !ok {
		return
	}

	rec, err := h.service.GetByDay(c.Request.Context(), day)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// List handles GET /reconciliations.
func (h *ReconciliationHandler) List(c *gin.Context) {
	var q dto.ReconciliationListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	filter := reconciliation.ListFilter{
		ListFilter: domain.ListFilter{
			Search: q.Search,
			Limit:  q.Limit,
			Offset: q.Offset,
		},
	}
	if q.Status != "" {
		st := reconciliation.Status(q.Status)
		filter.Status = &st
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
