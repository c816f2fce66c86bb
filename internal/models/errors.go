package models

import (
	"errors"
)

var (
	ErrGeneral          = errors.New("an error occurred on the server during your request")
	ErrResourceNotFound = errors.New("there is no")

	// ErrDatabaseConflict is returned when a concurrent write invalidated an
	// in-flight operation. It is safe to retry the request.
	ErrDatabaseConflict = errors.New("the request conflicted with a concurrent change, please retry")

	// ErrBudgetExceeded is returned when a create or update would allocate or
	// spend more money than is available.
	ErrBudgetExceeded = errors.New("the amount exceeds the available budget")
)

// Grant errors
var ErrGrantTotalNotPositive = errors.New("the grant total must be larger than zero")

// Allocation errors
var (
	ErrAllocationAmountNotPositive = errors.New("allocation amounts must be larger than zero")
	ErrAllocationNameEmpty         = errors.New("allocation names must not be empty")
	ErrAllocationTooDeep           = errors.New("the allocation would exceed the maximum nesting depth")
	ErrAllocationCycle             = errors.New("an allocation cannot be nested under itself or one of its descendants")
)

// Transaction errors
var ErrTransactionAmountNotPositive = errors.New("transaction amounts must be larger than zero")
