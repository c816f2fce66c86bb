package v1

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grantwise/backend/internal/models"
	gw_uuid "github.com/grantwise/backend/internal/uuid"
)

// TransactionEditable represents all user configurable parameters of a transaction.
type TransactionEditable struct {
	Date         time.Time `json:"date" example:"2026-03-14T00:00:00Z"`                               // Date of the transaction. Defaults to the current time
	Amount       int64     `json:"amount" example:"4200" minimum:"1"`                                 // The spent amount in minor units
	Note         string    `json:"note" example:"Venue deposit" default:""`                           // A note describing the spend
	GrantID      uuid.UUID `json:"grantId" example:"363dde1e-4533-4f6c-a30f-0e6ed7304ba4"`            // ID of the grant the transaction belongs to
	AllocationID uuid.UUID `json:"allocationId" example:"a0909e84-e8f9-4cb6-82a5-025dff105ff2"`       // ID of the allocation the spend is recorded against
}

// model returns the database resource for the API representation of the editable fields
func (editable TransactionEditable) model() models.Transaction {
	return models.Transaction{
		Date:         editable.Date,
		Amount:       editable.Amount,
		Note:         editable.Note,
		GrantID:      editable.GrantID,
		AllocationID: editable.AllocationID,
	}
}

type TransactionLinks struct {
	Self       string `json:"self" example:"https://example.com/api/v1/transactions/d430d7c3-d14c-4712-9336-ee56965a6673"`        // The transaction itself
	Allocation string `json:"allocation" example:"https://example.com/api/v1/allocations/a0909e84-e8f9-4cb6-82a5-025dff105ff2"`   // The allocation the spend is recorded against
}

// Transaction is the API representation of a transaction.
type Transaction struct {
	models.DefaultModel
	TransactionEditable
	Links TransactionLinks `json:"links"`
}

func newTransaction(url string, model models.Transaction) Transaction {
	return Transaction{
		DefaultModel: model.DefaultModel,
		TransactionEditable: TransactionEditable{
			Date:         model.Date,
			Amount:       model.Amount,
			Note:         model.Note,
			GrantID:      model.GrantID,
			AllocationID: model.AllocationID,
		},
		Links: TransactionLinks{
			Self:       fmt.Sprintf("%s/v1/transactions/%s", url, model.ID),
			Allocation: fmt.Sprintf("%s/v1/allocations/%s", url, model.AllocationID),
		},
	}
}

type TransactionListResponse struct {
	Data       []Transaction `json:"data"`                                                          // List of transactions
	Error      *string       `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Pagination *Pagination   `json:"pagination"`                                                    // Pagination information
}

type TransactionCreateResponse struct {
	Error *string               `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred
	Data  []TransactionResponse `json:"data"`                                                          // List of the created transactions or their respective error
}

func (t *TransactionCreateResponse) appendError(err error, currentStatus int) int {
	s := err.Error()
	t.Data = append(t.Data, TransactionResponse{Error: &s})

	// The final status code is the highest HTTP status code number
	newStatus := status(err)
	if newStatus > currentStatus {
		return newStatus
	}

	return currentStatus
}

type TransactionResponse struct {
	Error *string      `json:"error" example:"the specified resource ID is not a valid UUID"` // The error, if any occurred for this transaction
	Data  *Transaction `json:"data"`                                                          // The transaction data, if creation was successful
}

type TransactionQueryFilter struct {
	GrantID      gw_uuid.UUID `form:"grant"`                         // By ID of the grant
	AllocationID gw_uuid.UUID `form:"allocation"`                    // By ID of the allocation
	Date         time.Time    `form:"date" filterField:"false"`      // By date. Ignores the time of day
	FromDate     time.Time    `form:"fromDate" filterField:"false"`  // Transactions at and after this date
	UntilDate    time.Time    `form:"untilDate" filterField:"false"` // Transactions before and at this date
	Note         string       `form:"note" filterField:"false"`      // By note
	Search       string       `form:"search" filterField:"false"`    // By string in the note
	Offset       uint         `form:"offset" filterField:"false"`    // The offset of the first transaction returned. Defaults to 0.
	Limit        int          `form:"limit" filterField:"false"`     // Maximum number of transactions to return. Defaults to 50.
}

func (f TransactionQueryFilter) model() models.Transaction {
	return models.Transaction{
		GrantID:      f.GrantID.UUID,
		AllocationID: f.AllocationID.UUID,
	}
}
