package storage

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a write violates a unique key.
	ErrConflict = errors.New("storage: conflict")
)
