// Package uuid wraps github.com/google/uuid so that an empty query or URI
// parameter binds to the Nil UUID instead of failing.
package uuid

import (
	google_uuid "github.com/google/uuid"
)

type UUID struct {
	google_uuid.UUID
}

var Nil UUID

func New() UUID {
	return UUID{google_uuid.New()}
}

func NewString() string {
	return google_uuid.NewString()
}

// Parse decodes s into a UUID, an empty string parses to Nil.
func Parse(s string) (UUID, error) {
	if s == "" {
		return Nil, nil
	}

	parsed, err := google_uuid.Parse(s)
	if err != nil {
		return Nil, err
	}

	return UUID{parsed}, nil
}

// UnmarshalParam implements gin's binding.BindUnmarshaler for UUID.
func (u *UUID) UnmarshalParam(p string) error {
	parsed, err := Parse(p)
	if err != nil {
		return err
	}

	*u = parsed
	return nil
}
