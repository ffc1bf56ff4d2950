package orders

import "errors"

var (
	// ErrNotFound is returned when the referenced order does not exist.
	ErrNotFound = errors.New("orders: not found")
	// ErrAlreadyTerminal is returned by markConfirmed/markFailed when the
	// order's status is already CONFIRMED or FAILED; the write is a no-op.
	ErrAlreadyTerminal = errors.New("orders: already terminal")
	// ErrInvalidSpec is returned by CreatePending on malformed input.
	ErrInvalidSpec = errors.New("orders: invalid order spec")
)
