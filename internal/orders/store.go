package orders

import "context"

// Store is the Order Store contract (spec C2). markConfirmed/markFailed
// guard the "terminal is sticky" invariant atomically: a second terminal
// write for the same order is a no-op that returns ErrAlreadyTerminal.
type Store interface {
	CreatePending(ctx context.Context, spec Spec) (Order, error)
	MarkConfirmed(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]Order, error)
}
