package models_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/grantwise/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (suite *TestSuiteStandard) TestGrantTrimWhitespace() {
	name := " Community Outreach 2026\t"
	note := "  Funded by the city council "

	grant := suite.createTestGrant(models.Grant{Name: name, Note: note})

	assert.Equal(suite.T(), strings.TrimSpace(name), grant.Name)
	assert.Equal(suite.T(), strings.TrimSpace(note), grant.Note)
}

func (suite *TestSuiteStandard) TestGrantTotalAmountPositive() {
	tests := []struct {
		name  string
		total int64
	}{
		{"zero total", 0},
		{"negative total", -10_000},
	}

	for _, tt := range tests {
		suite.T().Run(tt.name, func(t *testing.T) {
			grant := models.Grant{Name: "Invalid", TotalAmount: tt.total}
			err := models.DB.Create(&grant).Error
			assert.ErrorIs(t, err, models.ErrGrantTotalNotPositive, "Error is: %s", err)
		})
	}
}

func (suite *TestSuiteStandard) TestGrantTotalAmount() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 123_456})

	total, err := models.GrantTotalAmount(models.DB, grant.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(123_456), total)

	_, err = models.GrantTotalAmount(models.DB, uuid.New())
	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound, "Error is: %s", err)
}

func (suite *TestSuiteStandard) TestGrantDeleteWithResources() {
	grant := suite.createTestGrant(models.Grant{TotalAmount: 10_000})
	events := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, Name: "Events", Amount: 6_000})
	venue := suite.createTestAllocation(models.Allocation{GrantID: grant.ID, ParentAllocationID: &events.ID, Name: "Venue", Amount: 4_000})
	_ = suite.createTestTransaction(models.Transaction{GrantID: grant.ID, AllocationID: venue.ID, Amount: 1_000})

	// Resources of another grant are untouched
	other := suite.createTestGrant(models.Grant{})
	otherAllocation := suite.createTestAllocation(models.Allocation{GrantID: other.ID, Amount: 500})

	err := grant.DeleteWithResources(models.DB)
	require.NoError(suite.T(), err)

	err = models.DB.First(&models.Grant{}, grant.ID).Error
	assert.ErrorIs(suite.T(), err, models.ErrResourceNotFound, "Error is: %s", err)

	var allocations []models.Allocation
	models.DB.Find(&allocations)
	require.Len(suite.T(), allocations, 1)
	assert.Equal(suite.T(), otherAllocation.ID, allocations[0].ID)

	var transactions []models.Transaction
	models.DB.Find(&transactions)
	assert.Len(suite.T(), transactions, 0)
}
