package queue

import "errors"

var (
	// ErrJobLost is returned when an operation targets a job id the store
	// no longer has a record of.
	ErrJobLost = errors.New("queue: job lost")
	// ErrLockLost is returned when Complete/Retry is called for
	// a job that is no longer Active (e.g. it was already redelivered after
	// a stall timeout).
	ErrLockLost = errors.New("queue: lock lost")
	// ErrBadStatus is returned when a store operation observes a job in a
	// status it cannot legally transition from.
	ErrBadStatus = errors.New("queue: bad status for transition")
)

// Retention bounds how many terminal jobs of each kind are kept for
// observability (spec §4.3).
type Retention struct {
	Completed int
	Failed    int
}

// DefaultRetention matches §4.3: last 500 completed, last 10 failed.
var DefaultRetention = Retention{Completed: 500, Failed: 10}
