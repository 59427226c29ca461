package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/reports"
)

// ReportsHandler serves reporting endpoints over the ledger.
type ReportsHandler struct {
	*BaseHandler
	service *reports.Service
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service *reports.Service) *ReportsHandler {
	return &ReportsHandler{BaseHandler: base, service: service}
}

// GetDailySummary handles GET /reports/daily-summary?day=...&category=...
func (h *ReportsHandler) GetDailySummary(c *gin.Context) {
	day, ok := h.ParseDay(c, "day", c.Query("day"))
	if !ok {
		return
	}

	filter := reports.DailySummaryFilter{Day: day}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}

	summary, err := h.service.GetDailySummary(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, summary)
}

// GetMovements handles GET /reports/movements?from=...&to=...
func (h *ReportsHandler) GetMovements(c *gin.Context) {
	from, ok := h.ParseDay(c, "from", c.Query("from"))
	if !ok {
		return
	}
	to, ok := h.ParseDay(c, "to", c.Query("to"))
	if !ok {
		return
	}

	filter := reports.MovementFilter{From: from, To: to}
	if v := c.Query("productId"); v != "" {
		productID, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid product id").WithDetail("value", v))
			return
		}
		filter.ProductID = &productID
	}
	if v := c.Query("category"); v != "" {
		filter.Category = &v
	}

	report, err := h.service.GetMovementReport(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, report)
}
