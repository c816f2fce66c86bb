package models_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/grantwise/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestAllocationTrimWhitespace() {
	grant := suite.createTestGrant(models.Grant{})

	name := "  Events \t"
	note := " Includes the venue deposit    "

	allocation := suite.createTestAllocation(models.Allocation{
		GrantID: grant.ID,
		Name:    name,
		Note:    note,
		Amount:  1000,
	})

	assert.Equal(suite.T(), strings.TrimSpace(name), allocation.Name)
	assert.Equal(suite.T(), strings.TrimSpace(note), allocation.Note)
}

func (suite *TestSuiteStandard) TestAllocationInvalidInput() {
	grant := suite.createTestGrant(models.Grant{})

	tests := []struct {
		name       string
		allocation models.Allocation
		err        error
	}{
		{"empty name", models.Allocation{GrantID: grant.ID, Name: " \t ", Amount: 100}, models.ErrAllocationNameEmpty},
		{"zero amount", models.Allocation{GrantID: grant.ID, Name: "Zero", Amount: 0}, models.ErrAllocationAmountNotPositive},
		{"negative amount", models.Allocation{GrantID: grant.ID, Name: "Negative", Amount: -500}, models.ErrAllocationAmountNotPositive},
		{"grant does not exist", models.Allocation{GrantID: uuid.New(), Name: "Orphan", Amount: 100}, models.ErrResourceNotFound},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			err := models.DB.Create(&tt.allocation).Error
			assert.ErrorIs(t, err, tt.err, "Error is: %s", err)
		})
	}
}

// Two top-level allocations of 6,000 and 5,000 do not fit a grant
// of 10,000.
func (suite *TestSuiteStandard) TestAllocationTopLevelBound() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})

	_ = suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})

	ops := models.Allocation{GrantID: grant.ID, Name: "Ops", Amount: 5_000}
	err := models.DB.Create(&ops).Error
	assert.ErrorIs(suite.T(), err, models.ErrBudgetExceeded, "Error is: %s", err)

	// The remaining 4,000 still fit
	fitting := models.Allocation{GrantID: grant.ID, Name: "Ops", Amount: 4_000}
	err = models.DB.Create(&fitting).Error
	assert.NoError(suite.T(), err)
}

// Sub-allocations of 4,000 and 3,000 do not fit a parent allocation
// of 6,000.
func (suite *TestSuiteStandard) TestAllocationNestedBound() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	events := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})

	_ = suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Venue", Amount: 4_000})

	catering := models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Catering", Amount: 3_000}
	err := models.DB.Create(&catering).Error
	assert.ErrorIs(suite.T(), err, models.ErrBudgetExceeded, "Error is: %s", err)
}

func (suite *TestSuiteStandard) TestAllocationParentReferences() {
	grant := suite.createTestGrant(models.Grant{})
	other := suite.createTestGrant(models.Grant{})
	parent := suite.createTestAllocation(models.Allocation{GrantID: other.ID, Name: "Other grant", Amount: 1000})

	missing := uuid.New()

	tests := []struct {
		name     string
		parentID uuid.UUID
	}{
		{"parent does not exist", missing},
		{"parent belongs to a different grant", parent.ID},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			allocation := models.Allocation{GrantID: grant.ID, ParentAllocationID: &tt.parentID, Name: "Child", Amount: 100}
			err := models.DB.Create(&allocation).Error
			assert.ErrorIs(t, err, models.ErrResourceNotFound, "Error is: %s", err)
		})
	}
}

func (suite *TestSuiteStandard) TestAllocationUpdateAmount() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	events := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})
	venue := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Venue", Amount: 4_000})

	// Growing beyond the grant total fails, the sibling sum excludes the
	// allocation itself
	err := models.DB.Model(&events).Updates(models.Allocation{Amount: 11_000}).Error
	assert.ErrorIs(suite.T(), err, models.ErrBudgetExceeded, "Error is: %s", err)

	err = models.DB.Model(&events).Updates(models.Allocation{Amount: 10_000}).Error
	assert.NoError(suite.T(), err)

	// A parent cannot shrink below what it has already handed down
	err = models.DB.Model(&events).Updates(models.Allocation{Amount: 3_999}).Error
	assert.ErrorIs(suite.T(), err, models.ErrBudgetExceeded, "Error is: %s", err)

	err = models.DB.Model(&events).Updates(models.Allocation{Amount: 4_000}).Error
	assert.NoError(suite.T(), err)

	// The nested allocation can grow up to the new parent amount
	err = models.DB.Model(&venue).Updates(models.Allocation{Amount: 4_001}).Error
	assert.ErrorIs(suite.T(), err, models.ErrBudgetExceeded, "Error is: %s", err)
}

// An allocation cannot shrink below what has already been spent against it.
func (suite *TestSuiteStandard) TestAllocationShrinkBelowSpent() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	venue := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Venue", Amount: 4_000})
	_ = suite.createTestTransaction(models.Transaction{GrantID: grant.ID, AllocationID: venue.ID, Amount: 3_500})

	err := models.DB.Model(&venue).Updates(models.Allocation{Amount: 3_000}).Error
	assert.ErrorIs(suite.T(), err, models.ErrBudgetExceeded, "Error is: %s", err)

	// The recorded spend still fits the allocation amount
	var reloaded models.Allocation
	require.NoError(suite.T(), models.DB.First(&reloaded, venue.ID).Error)
	assert.Equal(suite.T(), int64(4_000), reloaded.Amount)

	// Shrinking to exactly the recorded spend works
	err = models.DB.Model(&venue).Updates(models.Allocation{Amount: 3_500}).Error
	assert.NoError(suite.T(), err)
}

func (suite *TestSuiteStandard) TestAllocationReparent() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	events := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})
	venue := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Venue", Amount: 4_000})
	ops := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Ops", Amount: 4_000})

	// An allocation cannot be its own ancestor
	err := models.DB.Model(&events).Updates(models.Allocation{ParentAllocationID: &venue.ID}).Error
	assert.ErrorIs(suite.T(), err, models.ErrAllocationCycle, "Error is: %s", err)

	err = models.DB.Model(&events).Updates(models.Allocation{ParentAllocationID: &events.ID}).Error
	assert.ErrorIs(suite.T(), err, models.ErrAllocationCycle, "Error is: %s", err)

	// Venue does not fit under Ops
	err = models.DB.Model(&venue).Updates(models.Allocation{ParentAllocationID: &ops.ID}).Error
	assert.ErrorIs(suite.T(), err, models.ErrBudgetExceeded, "Error is: %s", err)

	// Venue fits under Ops after shrinking
	err = models.DB.Model(&venue).Updates(models.Allocation{ParentAllocationID: &ops.ID, Amount: 3_000}).Error
	assert.NoError(suite.T(), err)
}

func (suite *TestSuiteStandard) TestAllocationDepthCap() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 1 << 40})

	parent := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Level 1", Amount: 1 << 39})

	for level := 2; level <= models.MaxAllocationDepth; level++ {
		allocation := models.Allocation{
			GrantID:            grant.ID,
			ParentAllocationID: &parent.ID,
			Name:               uuid.New().String(),
			Amount:             parent.Amount / 2,
		}
		err := models.DB.Create(&allocation).Error
		require.NoError(suite.T(), err, "creation failed at level %d", level)

		parent = allocation
	}

	tooDeep := models.Allocation{
		GrantID:            grant.ID,
		ParentAllocationID: &parent.ID,
		Name:               "Too deep",
		Amount:             1,
	}
	err := models.DB.Create(&tooDeep).Error
	assert.ErrorIs(suite.T(), err, models.ErrAllocationTooDeep, "Error is: %s", err)
}

// Re-parenting moves the whole subtree, so the depth cap applies to the
// deepest descendant of the moved node, not only to the node itself.
func (suite *TestSuiteStandard) TestAllocationReparentDepthCap() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 1 << 40})

	parent := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Level 1", Amount: 1 << 39})
	for level := 2; level < models.MaxAllocationDepth; level++ {
		parent = suite.createTestAllocation(models.Allocation{
			GrantID:            grant.ID,
			ParentAllocationID: &parent.ID,
			Name:               uuid.New().String(),
			Amount:             parent.Amount / 2,
		})
	}

	// parent now sits one level above the cap. A childless node still
	// fits under it, a node with a descendant does not.
	mover := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Mover", Amount: 64})
	_ = suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &mover.ID, Name: "Nested", Amount: 32})

	err := models.DB.Model(&mover).Updates(models.Allocation{ParentAllocationID: &parent.ID}).Error
	assert.ErrorIs(suite.T(), err, models.ErrAllocationTooDeep, "Error is: %s", err)

	leaf := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Leaf", Amount: 64})
	err = models.DB.Model(&leaf).Updates(models.Allocation{ParentAllocationID: &parent.ID}).Error
	assert.NoError(suite.T(), err)
}

// Deleting an allocation removes the full subtree and the transactions
// recorded against it.
func (suite *TestSuiteStandard) TestAllocationDeleteSubtree() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	events := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})
	venue := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Venue", Amount: 4_000})
	catering := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Catering", Amount: 2_000})
	_ = suite.createTestTransaction(models.Transaction{GrantID: grant.ID, AllocationID: venue.ID, Amount: 3_000})

	// An unrelated allocation survives the delete
	ops := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Ops", Amount: 2_000})

	err := events.DeleteSubtree(models.DB)
	require.NoError(suite.T(), err)

	for _, id := range []uuid.UUID{events.ID, venue.ID, catering.ID} {
		err = models.DB.First(&models.Allocation{}, id).Error
		assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound, "allocation %s still exists", id)
	}

	var transactions []models.Transaction
	models.DB.Find(&transactions)
	assert.Len(suite.T(), transactions, 0, "transactions of the subtree were not removed")

	err = models.DB.First(&models.Allocation{}, ops.ID).Error
	assert.NoError(suite.T(), err)

	roots, err := grant.AllocationTree(models.DB)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), roots, 1)
	assert.Equal(suite.T(), "Ops", roots[0].Name)
}

func (suite *TestSuiteStandard) TestAllocationTree() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	events := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})
	venue := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Venue", Amount: 4_000})
	_ = suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &venue.ID, Name: "Deposit", Amount: 1_000})
	_ = suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Ops", Amount: 2_000})
	_ = suite.createTestTransaction(models.Transaction{GrantID: grant.ID, AllocationID: venue.ID, Amount: 2_500})

	roots, err := grant.AllocationTree(models.DB)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), roots, 2, "wrong number of top-level allocations")

	// Ordered by name
	assert.Equal(suite.T(), "Events", roots[0].Name)
	assert.Equal(suite.T(), "Ops", roots[1].Name)

	require.Len(suite.T(), roots[0].Children, 1)
	venueNode := roots[0].Children[0]
	assert.Equal(suite.T(), int64(4_000), roots[0].ChildrenAllocated)
	assert.Equal(suite.T(), int64(2_500), venueNode.Spent)
	assert.Equal(suite.T(), int64(1_000), venueNode.ChildrenAllocated)
	require.Len(suite.T(), venueNode.Children, 1)
	assert.Equal(suite.T(), "Deposit", venueNode.Children[0].Name)
}

// Two concurrent sub-allocations that each fit the remaining budget on
// their own, but not together, must not both succeed.
func (suite *TestSuiteStandard) TestAllocationConcurrentCreate() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	events := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})
	_ = suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Venue", Amount: 4_000})

	// 2,000 remain under Events
	amounts := []int64{1_500, 1_000}
	errs := make([]error, len(amounts))

	var wg sync.WaitGroup
	for i, amount := range amounts {
		i, amount := i, amount
		wg.Add(1)
		go func() {
			defer wg.Done()

			allocation := models.Allocation{
				GrantID:            grant.ID,
				ParentAllocationID: &events.ID,
				Name:               uuid.New().String(),
				Amount:             amount,
			}
			errs[i] = models.DB.Create(&allocation).Error
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}

		assert.True(suite.T(), errorsIsAny(err, models.ErrBudgetExceeded, models.ErrDatabaseConflict), "unexpected error: %s", err)
	}
	assert.LessOrEqual(suite.T(), succeeded, 1, "both concurrent allocations were accepted")

	// The budget is never overcommitted
	var children []models.Allocation
	models.DB.Where(models.Allocation{ParentAllocationID: &events.ID}).Find(&children)

	var sum int64
	for _, child := range children {
		sum += child.Amount
	}
	assert.LessOrEqual(suite.T(), sum, events.Amount, "nested allocations exceed the parent amount")
}
