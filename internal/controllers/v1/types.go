package v1

import (
	gw_uuid "github.com/grantwise/backend/internal/uuid"
)

type URIID struct {
	ID gw_uuid.UUID `uri:"id" binding:"required" format:"UUID"` // ID of the resource
}

// Pagination contains the pagination information for a list endpoint.
type Pagination struct {
	Count  int   `json:"count"`  // The amount of records returned in this response
	Offset uint  `json:"offset"` // The offset for the first record returned
	Limit  int   `json:"limit"`  // The maximum amount of resources to return for this request
	Total  int64 `json:"total"`  // The total number of resources matching the query
}

type httpError struct {
	Error string `json:"error" example:"the specified resource ID is not a valid UUID"`
}
