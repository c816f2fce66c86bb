package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction represents money spent against an allocation.
//
// The transaction only references its allocation, it does not own it. The
// sum of all transactions against one allocation can never exceed that
// allocation's amount, this is enforced on every create and update.
type Transaction struct {
	DefaultModel
	Date         time.Time `json:"date"`
	Amount       int64     // The spent amount in minor units
	Note         string
	Grant        Grant      `json:"-"`
	GrantID      uuid.UUID  `gorm:"index"`
	Allocation   Allocation `json:"-"`
	AllocationID uuid.UUID  `gorm:"index"`
}

// BeforeSave sets the timezone for the Date to UTC and trims whitespace.
func (t *Transaction) BeforeSave(_ *gorm.DB) error {
	if t.Date.IsZero() {
		t.Date = time.Now().In(time.UTC)
	} else {
		t.Date = t.Date.In(time.UTC)
	}

	t.Note = strings.TrimSpace(t.Note)

	return nil
}

// AfterFind updates the date to use UTC as timezone, not +0000.
func (t *Transaction) AfterFind(_ *gorm.DB) error {
	t.Date = t.Date.In(time.UTC)
	return nil
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	_ = t.DefaultModel.BeforeCreate(tx)

	toSave := tx.Statement.Dest.(*Transaction)
	return checkSpend(tx, toSave.GrantID, toSave.AllocationID, toSave.Amount, uuid.Nil)
}

// BeforeUpdate re-validates the spend against the possibly new target
// allocation, inside the transaction that performs the update.
func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	if !tx.Statement.Changed("Amount") && !tx.Statement.Changed("AllocationID") {
		return nil
	}

	toSave := tx.Statement.Dest.(Transaction)

	amount := t.Amount
	if tx.Statement.Changed("Amount") {
		amount = toSave.Amount
	}

	allocationID := t.AllocationID
	if tx.Statement.Changed("AllocationID") {
		allocationID = toSave.AllocationID
	}

	return checkSpend(tx, t.GrantID, allocationID, amount, t.ID)
}

// checkSpend verifies that the amount still fits the remaining budget of
// the allocation: its amount minus the transactions already recorded
// against it.
//
// exclude is the ID of the transaction being updated so that its current
// amount does not count against itself. For creates it is uuid.Nil.
func checkSpend(tx *gorm.DB, grantID, allocationID uuid.UUID, amount int64, exclude uuid.UUID) error {
	if amount <= 0 {
		return ErrTransactionAmountNotPositive
	}

	var allocation Allocation
	err := tx.First(&allocation, allocationID).Error
	if err != nil {
		return err
	}

	if allocation.GrantID != grantID {
		return fmt.Errorf("%w allocation in this grant matching your query", ErrResourceNotFound)
	}

	spent, err := spentSum(tx, allocationID, exclude)
	if err != nil {
		return err
	}

	if spent+amount > allocation.Amount {
		return fmt.Errorf("%w: %d of %d is still available for spending", ErrBudgetExceeded, allocation.Amount-spent, allocation.Amount)
	}

	return nil
}

// spentSum returns the sum of all transactions against one allocation.
func spentSum(db *gorm.DB, allocationID uuid.UUID, exclude uuid.UUID) (int64, error) {
	q := db.Model(&Transaction{}).Where("allocation_id = ?", allocationID)

	if exclude != uuid.Nil {
		q = q.Where("id != ?", exclude)
	}

	var sum sql.NullInt64
	err := q.Select("SUM(amount)").Row().Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("getting the spent sum for allocation %s failed: %w", allocationID, err)
	}

	return sum.Int64, nil
}

// TransactionsSum returns the sum of all transactions for a grant.
func TransactionsSum(db *gorm.DB, grantID uuid.UUID) (int64, error) {
	var sum sql.NullInt64
	err := db.Model(&Transaction{}).
		Where("grant_id = ?", grantID).
		Select("SUM(amount)").
		Row().
		Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("getting the transaction sum for grant %s failed: %w", grantID, err)
	}

	return sum.Int64, nil
}

// SpentByAllocation returns the spent sum for every allocation of the grant
// that has at least one transaction.
func SpentByAllocation(db *gorm.DB, grantID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []struct {
		AllocationID uuid.UUID
		Spent        int64
	}

	err := db.Model(&Transaction{}).
		Where("grant_id = ?", grantID).
		Select("allocation_id, SUM(amount) AS spent").
		Group("allocation_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("getting the spent sums for grant %s failed: %w", grantID, err)
	}

	spent := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		spent[row.AllocationID] = row.Spent
	}

	return spent, nil
}

// Returns all transactions on this instance for export
func (Transaction) Export() (json.RawMessage, error) {
	var transactions []Transaction
	err := DB.Where(&Transaction{}).Find(&transactions).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&transactions)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
