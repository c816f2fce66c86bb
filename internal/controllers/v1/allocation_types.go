package v1

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/grantwise/backend/internal/models"
	gw_uuid "github.com/grantwise/backend/internal/uuid"
)

// AllocationEditable represents all user configurable parameters of an allocation.
type AllocationEditable struct {
	GrantID            uuid.UUID  `json:"grantId" example:"363dde1e-4533-4f6c-a30f-0e6ed7304ba4"`             // ID of the grant the allocation belongs to
	ParentAllocationID *uuid.UUID `json:"parentAllocationId" example:"a0909e84-e8f9-4cb6-82a5-025dff105ff2"`  // ID of the parent allocation. null for top-level allocations
	Name               string     `json:"name" example:"Events" default:""`                                   // Name of the allocation
	Note               string     `json:"note" example:"Includes the venue deposit" default:""`               // Notes about the allocation
	Amount             int64      `json:"amount" example:"600000" minimum:"1"`                                // The allocated budget in minor units
}

func (editable AllocationEditable) model() models.Allocation {
	return models.Allocation{
		GrantID:            editable.GrantID,
		ParentAllocationID: editable.ParentAllocationID,
		Name:               editable.Name,
		Note:               editable.Note,
		Amount:             editable.Amount,
	}
}

type AllocationLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v1/allocations/a0909e84-e8f9-4cb6-82a5-025dff105ff2"`                     // The allocation itself
	Children     string `json:"children" example:"https://example.com/api/v1/allocations?parent=a0909e84-e8f9-4cb6-82a5-025dff105ff2"`          // The allocations nested directly under this one
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions?allocation=a0909e84-e8f9-4cb6-82a5-025dff105ff2"` // Transactions against this allocation
}

// Allocation is the API representation of an allocation.
type Allocation struct {
	models.DefaultModel
	AllocationEditable
	Links AllocationLinks `json:"links"`
}

func newAllocation(url string, model models.Allocation) Allocation {
	return Allocation{
		DefaultModel: model.DefaultModel,
		AllocationEditable: AllocationEditable{
			GrantID:            model.GrantID,
			ParentAllocationID: model.ParentAllocationID,
			Name:               model.Name,
			Note:               model.Note,
			Amount:             model.Amount,
		},
		Links: AllocationLinks{
			Self:         fmt.Sprintf("%s/v1/allocations/%s", url, model.ID),
			Children:     fmt.Sprintf("%s/v1/allocations?parent=%s", url, model.ID),
			Transactions: fmt.Sprintf("%s/v1/transactions?allocation=%s", url, model.ID),
		},
	}
}

type AllocationListResponse struct {
	Data       []Allocation `json:"data"`                                                          // List of allocations
	Error      *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination  `json:"pagination"`                                                    // Pagination information
}

type AllocationCreateResponse struct {
	Error *string              `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []AllocationResponse `json:"data"`                                                          // List of the created allocations or their respective error
}

func (a *AllocationCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	a.Data = append(a.Data, AllocationResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type AllocationResponse struct {
	Error *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred for this allocation
	Data  *Allocation `json:"data"`                                                          // The allocation data, if creation was successful
}

type AllocationQueryFilter struct {
	GrantID            gw_uuid.UUID `form:"grant"`                        // By ID of the grant
	ParentAllocationID gw_uuid.UUID `form:"parent" filterField:"false"`   // By ID of the parent allocation
	TopLevel           bool         `form:"topLevel" filterField:"false"` // Only top-level allocations
	Name               string       `form:"name" filterField:"false"`     // By name
	Note               string       `form:"note" filterField:"false"`     // By note
	Search             string       `form:"search" filterField:"false"`   // By string in name or note
	Offset             uint         `form:"offset" filterField:"false"`   // The offset of the first allocation returned. Defaults to 0.
	Limit              int          `form:"limit" filterField:"false"`    // Maximum number of allocations to return. Defaults to 50.
}

func (f AllocationQueryFilter) model() models.Allocation {
	return models.Allocation{
		GrantID: f.GrantID.UUID,
	}
}
