package db

import "errors"

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a record changed since it was read
	ErrVersionConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is returned when a unique constraint would be violated
	ErrDuplicate = errors.New("record already exists")
)
