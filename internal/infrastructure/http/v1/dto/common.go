// Package dto defines request and response shapes for the HTTP API.
package dto

// IDResponse returns a created entity ID.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a generic success acknowledgement.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// PageQuery holds common pagination query parameters.
type PageQuery struct {
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
	Search string `form:"search"`
}
