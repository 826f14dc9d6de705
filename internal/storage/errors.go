package storage

import "errors"

// Storage errors for the alert history store.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert an alert
	// whose (signature, wallet, mint) key already exists. Alert history
	// is append-only.
	ErrDuplicateKey = errors.New("duplicate key: alert already recorded")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
