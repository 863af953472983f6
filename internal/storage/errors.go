package storage

import "errors"

// Storage errors shared by all backends.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when an insert violates a uniqueness constraint
	// (wallet, slug, session hash, or one vote per wallet per poll).
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a compare-and-set update finds the record
	// in a different state than expected.
	ErrConflict = errors.New("conflict: record changed concurrently")
)
