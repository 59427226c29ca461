package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/domain/ledger"
)

// LedgerHandler serves read access to the daily stock ledger.
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service}
}

// GetDay handles GET /ledger/:productId/:day, one product's record for
// one day.
func (h *LedgerHandler) GetDay(c *gin.Context) {
	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid product id").WithDetail("value", c.Param("productId")))
		return
	}
	day, ok := h.ParseDay(c, "day", c.Param("day"))
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), productID, day)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, rec)
}

// ListRange handles GET /ledger?from=...&to=...&category=...
func (h *LedgerHandler) ListRange(c *gin.Context) {
	from, ok := h.ParseDay(c, "from", c.Query("from"))
	if !ok {
		return
	}
	to, ok := h.ParseDay(c, "to", c.Query("to"))
	if !ok {
		return
	}

	var category *string
	if v := c.Query("category"); v != "" {
		category = &v
	}

	records, err := h.service.ListRecords(c.Request.Context(), from, to, category)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"items": records})
}
