package dto

// CreateReconciliationRequest opens a count session for a day.
type CreateReconciliationRequest struct {
	Day  string `json:"day" binding:"required"`
	Note string `json:"note"`
}

// ApproveReconciliationRequest carries the optional approval note.
type ApproveReconciliationRequest struct {
	Note string `json:"note"`
}

// RecordCountRequest records a counted quantity for one product.
type RecordCountRequest struct {
	PhysicalStock int64  `json:"physicalStock" binding:"min=0"`
	Reason        string `json:"reason"`
}

// ReconciliationListQuery filters the reconciliation list.
type ReconciliationListQuery struct {
	PageQuery
	Status  string `form:"status"`
	DayFrom string `form:"dayFrom"`
	DayTo   string `form:"dayTo"`
}
