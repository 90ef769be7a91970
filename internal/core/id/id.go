// Package id provides UUIDv7 generation for series, submissions and audit rows.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// Optional is a nullable ID (document type, owning project).
type Optional = uuid.NullUUID

// New generates a new time-ordered UUIDv7, so audit rows sort by creation.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// Some wraps a present ID as Optional.
func Some(v ID) Optional {
	return uuid.NullUUID{UUID: v, Valid: true}
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}
