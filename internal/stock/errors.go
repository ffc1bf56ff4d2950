package stock

import "errors"

var (
	// ErrNotFound is returned when the referenced stock record does not exist.
	ErrNotFound = errors.New("stock: not found")
	// ErrInsufficient is returned when a reserve would drive quantity below zero.
	ErrInsufficient = errors.New("stock: insufficient quantity")
	// ErrVersionConflict is returned when the CAS write lost the race against
	// a concurrent mutation on every one of the store's bounded fresh-read
	// retries.
	ErrVersionConflict = errors.New("stock: version conflict")
	// ErrInvalidAmount is returned when n <= 0 is passed to Reserve or Release.
	ErrInvalidAmount = errors.New("stock: amount must be positive")
)
