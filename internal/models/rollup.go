package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Rollup contains the read-side aggregates for one grant.
//
// It is derived from a snapshot of the allocations and transactions and
// never gates a write, a rollup read concurrent to a mutation may be
// momentarily stale.
type Rollup struct {
	TotalAllocated      int64           `json:"totalAllocated" example:"600000"`     // Sum of the top-level allocation amounts in minor units
	TotalSpent          int64           `json:"totalSpent" example:"250000"`         // Sum of all transactions for the grant in minor units
	Remaining           int64           `json:"remaining" example:"750000"`          // Grant total minus total spent in minor units
	PercentageAllocated decimal.Decimal `json:"percentageAllocated" example:"60"`    // Share of the grant total that is allocated, in percent
	PercentageRemaining decimal.Decimal `json:"percentageRemaining" example:"75"`    // Share of the grant total that is not yet spent, in percent
}

// ComputeRollup computes the aggregates for the grant.
func ComputeRollup(db *gorm.DB, grantID uuid.UUID) (Rollup, error) {
	var grant Grant
	err := db.First(&grant, grantID).Error
	if err != nil {
		return Rollup{}, err
	}

	allocated, err := allocationSum(db, grantID, nil, uuid.Nil)
	if err != nil {
		return Rollup{}, err
	}

	spent, err := TransactionsSum(db, grantID)
	if err != nil {
		return Rollup{}, err
	}

	remaining := grant.TotalAmount - spent

	// The grant total is checked to be positive on create, the divisions
	// cannot panic
	total := decimal.NewFromInt(grant.TotalAmount)
	hundred := decimal.NewFromInt(100)

	return Rollup{
		TotalAllocated:      allocated,
		TotalSpent:          spent,
		Remaining:           remaining,
		PercentageAllocated: decimal.NewFromInt(allocated).Div(total).Mul(hundred).Round(2),
		PercentageRemaining: decimal.NewFromInt(remaining).Div(total).Mul(hundred).Round(2),
	}, nil
}
