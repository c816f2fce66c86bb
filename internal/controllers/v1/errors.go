package v1

import (
	"errors"
	"net/http"

	"github.com/grantwise/backend/internal/models"
)

// status returns the HTTP status code for an error.
func status(err error) int {
	if errors.Is(err, models.ErrGeneral) {
		return http.StatusInternalServerError
	}

	if errors.Is(err, models.ErrResourceNotFound) {
		return http.StatusNotFound
	}

	if errors.Is(err, models.ErrDatabaseConflict) {
		return http.StatusConflict
	}

	return http.StatusBadRequest
}
