package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"gorm.io/gorm"
)

// MaxAllocationDepth caps how deeply allocations can be nested. The subtree
// walks are iterative, the cap exists so that adversarial hierarchies cannot
// make tree reads arbitrarily expensive.
const MaxAllocationDepth = 32

// Allocation represents a named portion of a grant's budget.
//
// Allocations form a forest per grant: a top-level allocation has no parent
// and is bounded by the grant total, a nested allocation is bounded by its
// parent's amount. The sum of the amounts on one level can never exceed
// that bound, this is enforced on every create and update.
type Allocation struct {
	DefaultModel
	Grant              Grant       `json:"-"`
	GrantID            uuid.UUID   `gorm:"index"`
	Parent             *Allocation `json:"-" gorm:"foreignKey:ParentAllocationID"`
	ParentAllocationID *uuid.UUID  `gorm:"index"` // nil for top-level allocations
	Name               string
	Note               string
	Amount             int64 // The allocated budget in minor units
}

// BeforeSave trims whitespace from all strings.
func (a *Allocation) BeforeSave(_ *gorm.DB) error {
	a.Name = strings.TrimSpace(a.Name)
	a.Note = strings.TrimSpace(a.Note)

	return nil
}

func (a *Allocation) BeforeCreate(tx *gorm.DB) error {
	_ = a.DefaultModel.BeforeCreate(tx)

	toSave := tx.Statement.Dest.(*Allocation)

	if strings.TrimSpace(toSave.Name) == "" {
		return ErrAllocationNameEmpty
	}

	if toSave.ParentAllocationID != nil {
		ancestors, err := ancestorIDs(tx, toSave.ParentAllocationID)
		if err != nil {
			return err
		}

		if len(ancestors)+1 > MaxAllocationDepth {
			return ErrAllocationTooDeep
		}
	}

	return checkAllocationBounds(tx, toSave.GrantID, toSave.ParentAllocationID, toSave.Amount, uuid.Nil)
}

// BeforeUpdate verifies the state of the allocation before
// committing an update to the database.
//
// The checks run inside the same transaction as the update itself, so the
// sums they read cannot be invalidated by a concurrent write.
func (a *Allocation) BeforeUpdate(tx *gorm.DB) error {
	toSave := tx.Statement.Dest.(Allocation)

	if tx.Statement.Changed("Name") && strings.TrimSpace(toSave.Name) == "" {
		return ErrAllocationNameEmpty
	}

	amount := a.Amount
	if tx.Statement.Changed("Amount") {
		amount = toSave.Amount
	}

	parentID := a.ParentAllocationID
	if tx.Statement.Changed("ParentAllocationID") {
		parentID = toSave.ParentAllocationID

		if parentID != nil {
			if *parentID == a.ID {
				return ErrAllocationCycle
			}

			ancestors, err := ancestorIDs(tx, parentID)
			if err != nil {
				return err
			}

			if slices.Contains(ancestors, a.ID) {
				return ErrAllocationCycle
			}

			// The whole moved subtree has to stay within the cap, not
			// just the node itself
			height, err := subtreeHeight(tx, a.ID)
			if err != nil {
				return err
			}

			if len(ancestors)+height > MaxAllocationDepth {
				return ErrAllocationTooDeep
			}
		}
	}

	if !tx.Statement.Changed("Amount") && !tx.Statement.Changed("ParentAllocationID") {
		return nil
	}

	err := checkAllocationBounds(tx, a.GrantID, parentID, amount, a.ID)
	if err != nil {
		return err
	}

	// A parent cannot shrink below what it has already handed down
	childrenSum, err := allocationSum(tx, a.GrantID, &a.ID, uuid.Nil)
	if err != nil {
		return err
	}

	if childrenSum > amount {
		return fmt.Errorf("%w: %d is already allocated to nested allocations", ErrBudgetExceeded, childrenSum)
	}

	// Recorded spend bounds the amount from below as well
	spent, err := spentSum(tx, a.ID, uuid.Nil)
	if err != nil {
		return err
	}

	if spent > amount {
		return fmt.Errorf("%w: %d is already spent against this allocation", ErrBudgetExceeded, spent)
	}

	return nil
}

// checkAllocationBounds verifies that the amount still fits the bound for
// the level the allocation sits on: the grant total for top-level
// allocations, the parent's amount for nested ones.
//
// exclude is the ID of the allocation being updated so that its current
// amount does not count against itself. For creates it is uuid.Nil.
func checkAllocationBounds(tx *gorm.DB, grantID uuid.UUID, parentID *uuid.UUID, amount int64, exclude uuid.UUID) error {
	if amount <= 0 {
		return ErrAllocationAmountNotPositive
	}

	var bound int64
	if parentID == nil {
		total, err := GrantTotalAmount(tx, grantID)
		if err != nil {
			return err
		}
		bound = total
	} else {
		var parent Allocation
		err := tx.First(&parent, *parentID).Error
		if err != nil {
			return err
		}

		if parent.GrantID != grantID {
			return fmt.Errorf("%w parent allocation in this grant matching your query", ErrResourceNotFound)
		}
		bound = parent.Amount
	}

	siblingSum, err := allocationSum(tx, grantID, parentID, exclude)
	if err != nil {
		return err
	}

	if siblingSum+amount > bound {
		return fmt.Errorf("%w: %d of %d is still available", ErrBudgetExceeded, bound-siblingSum, bound)
	}

	return nil
}

// allocationSum returns the sum of the amounts of all allocations directly
// under the given parent. A nil parent sums the top-level allocations of
// the grant.
func allocationSum(db *gorm.DB, grantID uuid.UUID, parentID *uuid.UUID, exclude uuid.UUID) (int64, error) {
	q := db.Model(&Allocation{}).Where("grant_id = ?", grantID)

	if parentID == nil {
		q = q.Where("parent_allocation_id IS NULL")
	} else {
		q = q.Where("parent_allocation_id = ?", *parentID)
	}

	if exclude != uuid.Nil {
		q = q.Where("id != ?", exclude)
	}

	var sum sql.NullInt64
	err := q.Select("SUM(amount)").Row().Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("getting the allocation sum for grant %s failed: %w", grantID, err)
	}

	return sum.Int64, nil
}

// ancestorIDs returns the IDs of all ancestors of the allocation referenced
// by parentID, nearest first. The walk is iterative and capped, a chain
// longer than MaxAllocationDepth returns ErrAllocationTooDeep.
func ancestorIDs(tx *gorm.DB, parentID *uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	for id := parentID; id != nil; {
		if len(ids) >= MaxAllocationDepth {
			return nil, ErrAllocationTooDeep
		}

		var parent Allocation
		err := tx.First(&parent, *id).Error
		if err != nil {
			return nil, err
		}

		ids = append(ids, parent.ID)
		id = parent.ParentAllocationID
	}

	return ids, nil
}

// SubtreeIDs collects the ID of the allocation and all its descendants.
//
// The descendant set is gathered breadth-first with one query per tree
// level, there is no recursion over the persisted hierarchy.
func (a Allocation) SubtreeIDs(db *gorm.DB) ([]uuid.UUID, error) {
	ids := []uuid.UUID{a.ID}
	frontier := []uuid.UUID{a.ID}

	for len(frontier) > 0 {
		var next []uuid.UUID
		err := db.Model(&Allocation{}).Where("parent_allocation_id IN ?", frontier).Pluck("id", &next).Error
		if err != nil {
			return nil, err
		}

		ids = append(ids, next...)
		frontier = next
	}

	return ids, nil
}

// subtreeHeight returns the number of levels in the subtree rooted at the
// allocation with the given ID, including the root's own level.
func subtreeHeight(tx *gorm.DB, id uuid.UUID) (int, error) {
	height := 1
	frontier := []uuid.UUID{id}

	for {
		var next []uuid.UUID
		err := tx.Model(&Allocation{}).Where("parent_allocation_id IN ?", frontier).Pluck("id", &next).Error
		if err != nil {
			return 0, err
		}

		if len(next) == 0 {
			return height, nil
		}

		height++
		frontier = next
	}
}

// DeleteSubtree removes the allocation, all its descendants and the
// transactions recorded against any of them as one transaction. A crash
// mid-delete leaves no orphaned descendants.
//
// Removal only shrinks sums, so no budget check is needed.
func (a Allocation) DeleteSubtree(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		ids, err := a.SubtreeIDs(tx)
		if err != nil {
			return err
		}

		err = tx.Where("allocation_id IN ?", ids).Delete(&Transaction{}).Error
		if err != nil {
			return err
		}

		return tx.Where("id IN ?", ids).Delete(&Allocation{}).Error
	})
}

// AllocationNode is one allocation in a materialized tree, together with
// the sums read-side consumers need.
type AllocationNode struct {
	Allocation
	Spent             int64 // Sum of all transactions against this allocation
	ChildrenAllocated int64 // Sum of the amounts of the direct children
	Children          []*AllocationNode
}

// AllocationTree materializes the allocation forest of the grant as
// parent to children links.
//
// The tree is built once from a flat read of the grant's allocations, not
// re-derived per node.
func (g Grant) AllocationTree(db *gorm.DB) ([]*AllocationNode, error) {
	var allocations []Allocation
	err := db.Where(&Allocation{GrantID: g.ID}).Order("name ASC").Find(&allocations).Error
	if err != nil {
		return nil, err
	}

	spent, err := SpentByAllocation(db, g.ID)
	if err != nil {
		return nil, err
	}

	nodes := make(map[uuid.UUID]*AllocationNode, len(allocations))
	for _, allocation := range allocations {
		nodes[allocation.ID] = &AllocationNode{
			Allocation: allocation,
			Spent:      spent[allocation.ID],
		}
	}

	roots := make([]*AllocationNode, 0)
	for _, allocation := range allocations {
		node := nodes[allocation.ID]

		if allocation.ParentAllocationID == nil {
			roots = append(roots, node)
			continue
		}

		parent := nodes[*allocation.ParentAllocationID]
		parent.Children = append(parent.Children, node)
		parent.ChildrenAllocated += allocation.Amount
	}

	return roots, nil
}

// Returns all allocations on this instance for export
func (Allocation) Export() (json.RawMessage, error) {
	var allocations []Allocation
	err := DB.Where(&Allocation{}).Find(&allocations).Error
	if err != nil {
		return nil, err
	}

	j, err := json.Marshal(&allocations)
	if err != nil {
		return json.RawMessage{}, err
	}
	return json.RawMessage(j), nil
}
