package models_test

import (
	"github.com/google/uuid"
	"github.com/grantwise/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestRollupEmptyGrant() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})

	rollup, err := models.ComputeRollup(models.DB, grant.ID)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), int64(0), rollup.TotalAllocated)
	assert.Equal(suite.T(), int64(0), rollup.TotalSpent)
	assert.Equal(suite.T(), int64(10_000), rollup.Remaining)
	assert.True(suite.T(), rollup.PercentageAllocated.IsZero(), "percentage allocated is %s", rollup.PercentageAllocated)
	assert.True(suite.T(), rollup.PercentageRemaining.Equal(decimal.NewFromInt(100)), "percentage remaining is %s", rollup.PercentageRemaining)
}

func (suite *TestSuiteStandard) TestRollup() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	events := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})
	venue := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Venue", Amount: 4_000})
	ops := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Ops", Amount: 1_000})

	_ = suite.createTestTransaction(models.Transaction{GrantID: grant.ID, AllocationID: venue.ID, Amount: 2_000})
	_ = suite.createTestTransaction(models.Transaction{GrantID: grant.ID, AllocationID: ops.ID, Amount: 500})

	rollup, err := models.ComputeRollup(models.DB, grant.ID)
	require.NoError(suite.T(), err)

	// Only top-level amounts count, Venue is already part of Events
	assert.Equal(suite.T(), int64(7_000), rollup.TotalAllocated)
	assert.Equal(suite.T(), int64(2_500), rollup.TotalSpent)
	assert.Equal(suite.T(), int64(7_500), rollup.Remaining)
	assert.True(suite.T(), rollup.PercentageAllocated.Equal(decimal.NewFromInt(70)), "percentage allocated is %s", rollup.PercentageAllocated)
	assert.True(suite.T(), rollup.PercentageRemaining.Equal(decimal.NewFromInt(75)), "percentage remaining is %s", rollup.PercentageRemaining)
}

func (suite *TestSuiteStandard) TestRollupGrantNotFound() {
	_, err := models.ComputeRollup(models.DB, uuid.New())
	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound, "Error is: %s", err)
}
