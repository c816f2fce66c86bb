package v1

import (
	"fmt"

	"github.com/grantwise/backend/internal/models"
)

// GrantEditable represents all user configurable parameters of a grant.
//
// The total amount is only configurable on creation, a grant's total is
// immutable afterwards.
type GrantEditable struct {
	Name        string `json:"name" example:"Community outreach 2026" default:""`     // Name of the grant
	Note        string `json:"note" example:"Awarded by the city council" default:""` // Notes about the grant
	TotalAmount int64  `json:"totalAmount" example:"1000000" minimum:"1"`             // The grant total in minor units
}

func (editable GrantEditable) model() models.Grant {
	return models.Grant{
		Name:        editable.Name,
		Note:        editable.Note,
		TotalAmount: editable.TotalAmount,
	}
}

type GrantLinks struct {
	Self         string `json:"self" example:"https://example.com/api/v1/grants/363dde1e-4533-4f6c-a30f-0e6ed7304ba4"`                      // The grant itself
	Allocations  string `json:"allocations" example:"https://example.com/api/v1/allocations?grant=363dde1e-4533-4f6c-a30f-0e6ed7304ba4"`    // Allocations for this grant
	Transactions string `json:"transactions" example:"https://example.com/api/v1/transactions?grant=363dde1e-4533-4f6c-a30f-0e6ed7304ba4"`  // Transactions for this grant
	Tree         string `json:"tree" example:"https://example.com/api/v1/grants/363dde1e-4533-4f6c-a30f-0e6ed7304ba4/tree"`                 // The materialized allocation tree
	Rollup       string `json:"rollup" example:"https://example.com/api/v1/grants/363dde1e-4533-4f6c-a30f-0e6ed7304ba4/rollup"`             // Aggregates for this grant
}

// Grant is the API representation of a grant.
type Grant struct {
	models.DefaultModel
	GrantEditable
	Links GrantLinks `json:"links"`
}

func newGrant(url string, model models.Grant) Grant {
	return Grant{
		DefaultModel: model.DefaultModel,
		GrantEditable: GrantEditable{
			Name:        model.Name,
			Note:        model.Note,
			TotalAmount: model.TotalAmount,
		},
		Links: GrantLinks{
			Self:         fmt.Sprintf("%s/v1/grants/%s", url, model.ID),
			Allocations:  fmt.Sprintf("%s/v1/allocations?grant=%s", url, model.ID),
			Transactions: fmt.Sprintf("%s/v1/transactions?grant=%s", url, model.ID),
			Tree:         fmt.Sprintf("%s/v1/grants/%s/tree", url, model.ID),
			Rollup:       fmt.Sprintf("%s/v1/grants/%s/rollup", url, model.ID),
		},
	}
}

type GrantListResponse struct {
	Data       []Grant     `json:"data"`                                                          // List of grants
	Error      *string     `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination `json:"pagination"`                                                    // Pagination information
}

type GrantCreateResponse struct {
	Error *string         `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []GrantResponse `json:"data"`                                                          // List of the created grants or their respective error
}

func (g *GrantCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	g.Data = append(g.Data, GrantResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type GrantResponse struct {
	Error *string `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred for this grant
	Data  *Grant  `json:"data"`                                                          // The grant data, if creation was successful
}

type GrantQueryFilter struct {
	Name   string `form:"name" filterField:"false"`   // By name
	Note   string `form:"note" filterField:"false"`   // By note
	Search string `form:"search" filterField:"false"` // By string in name or note
	Offset uint   `form:"offset" filterField:"false"` // The offset of the first grant returned. Defaults to 0.
	Limit  int    `form:"limit" filterField:"false"`  // Maximum number of grants to return. Defaults to 50.
}

func (f GrantQueryFilter) model() models.Grant {
	return models.Grant{}
}

// TreeNode is one allocation in the materialized tree of a grant, together
// with its budget aggregates.
type TreeNode struct {
	models.DefaultModel
	AllocationEditable
	Spent             int64      `json:"spent" example:"150000"`             // Sum of the transactions against this allocation in minor units
	ChildrenAllocated int64      `json:"childrenAllocated" example:"300000"` // Sum of the amounts of the direct children in minor units
	Unallocated       int64      `json:"unallocated" example:"100000"`       // Amount not yet handed down to nested allocations in minor units
	Unspent           int64      `json:"unspent" example:"250000"`           // Amount not yet spent in minor units
	Children          []TreeNode `json:"children"`                           // The nested allocations
}

func newTreeNode(node *models.AllocationNode) TreeNode {
	children := make([]TreeNode, 0, len(node.Children))
	for _, child := range node.Children {
		children = append(children, newTreeNode(child))
	}

	return TreeNode{
		DefaultModel: node.DefaultModel,
		AllocationEditable: AllocationEditable{
			GrantID:            node.GrantID,
			ParentAllocationID: node.ParentAllocationID,
			Name:               node.Name,
			Note:               node.Note,
			Amount:             node.Amount,
		},
		Spent:             node.Spent,
		ChildrenAllocated: node.ChildrenAllocated,
		Unallocated:       node.Amount - node.ChildrenAllocated,
		Unspent:           node.Amount - node.Spent,
		Children:          children,
	}
}

type TreeResponse struct {
	Data  []TreeNode `json:"data"`                                                          // The allocation forest of the grant
	Error *string    `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}

type RollupResponse struct {
	Data  *models.Rollup `json:"data"`                                                          // The aggregates for the grant
	Error *string        `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
}
