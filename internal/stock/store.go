package stock

import "context"

// Store is the Stock Store contract (spec C1). Reserve and Release are the
// only permitted mutators of Quantity; everything else in the system reads
// through ReadStock.
type Store interface {
	ReadStock(ctx context.Context, id string) (Stock, error)
	// Reserve atomically decrements quantity by n if quantity >= n and the
	// caller observes no conflicting concurrent write. Returns
	// ErrVersionConflict if the underlying CAS still lost the race after the
	// store's own bounded fresh-read retries (§4.1), or ErrInsufficient if
	// quantity < n.
	Reserve(ctx context.Context, id string, n int64) (Stock, error)
	// Release atomically increments quantity by n. No upper cap is enforced.
	Release(ctx context.Context, id string, n int64) (Stock, error)
}
