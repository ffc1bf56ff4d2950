package orders

import "time"

// Status is an Order's lifecycle state. PENDING is the only non-terminal
// value; CONFIRMED and FAILED are permanent once set.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// Order is a single purchase attempt against one stock record.
type Order struct {
	ID              string
	UserID          string
	ProductID       string
	StockID         string
	Quantity        int64
	PriceAtPurchase float64
	Status          Status
	IsVIP           bool
	FailureReason   string
	// Attempts is an observability-only field. It is stored as 0 when the
	// order is created and no code path updates it afterwards; the job's
	// attempt counter lives in the queue. No correctness-bearing logic
	// reads it.
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Spec is the caller-supplied intent for a new order (C4 input).
type Spec struct {
	UserID          string
	StockID         string
	Quantity        int64
	PriceAtPurchase float64
	IsVIP           bool
}
