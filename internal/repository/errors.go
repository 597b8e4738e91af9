package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write violates a uniqueness rule,
	// such as a second earnings record for the same reservation.
	ErrDuplicate = errors.New("entity already exists")
)
