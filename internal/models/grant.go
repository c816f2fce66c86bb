package models

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Grant represents a fixed sum of money that is subdivided into allocations.
//
// The total amount of a grant is immutable as far as this backend is
// concerned, it is set once when the grant is created. All amounts are
// integer minor units of the instance currency.
type Grant struct {
	DefaultModel
	Name        string
	Note        string
	TotalAmount int64 // The grant total in minor units
}

// BeforeSave trims whitespace from all strings.
func (g *Grant) BeforeSave(_ *gorm.DB) error {
	g.Name = strings.TrimSpace(g.Name)
	g.Note = strings.TrimSpace(g.Note)

	return nil
}

func (g *Grant) BeforeCreate(tx *gorm.DB) error {
	_ = g.DefaultModel.BeforeCreate(tx)

	toSave := tx.Statement.Dest.(*Grant)
	if toSave.TotalAmount <= 0 {
		return ErrGrantTotalNotPositive
	}

	return nil
}

// GrantTotalAmount returns the total amount for a grant.
//
// This is the read the allocation and transaction checks consult, callers
// that only display budgets use it as well.
func GrantTotalAmount(db *gorm.DB, id uuid.UUID) (int64, error) {
	var grant Grant
	err := db.First(&grant, id).Error
	if err != nil {
		return 0, err
	}

	return grant.TotalAmount, nil
}

// DeleteWithResources removes the grant together with all its allocations
// and transactions in a single transaction.
func (g Grant) DeleteWithResources(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where(&Transaction{GrantID: g.ID}).Delete(&Transaction{}).Error
		if err != nil {
			return err
		}

		err = tx.Where(&Allocation{GrantID: g.ID}).Delete(&Allocation{}).Error
		if err != nil {
			return err
		}

		return tx.Delete(&Grant{}, g.ID).Error
	})
}

// Returns all grants on this instance for export
func (Grant) Export() (json.RawMessage, error) {
	var grants []Grant
	err := DB.Where(&Grant{}).Find(&grants).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&grants)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
