package queue

import (
	"time"

	"github.com/google/uuid"
)

// Priority is a dispatch-order class. Lower values dispatch first. Two
// classes are defined by the spec: VIP and a regular default.
type Priority int

const (
	PriorityVIP     Priority = 1
	PriorityDefault Priority = 1000
)

// Status is a Job's lifecycle state (spec §3 Job, §4.3).
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Payload is the data a worker needs to process one order (spec §3 Job).
type Payload struct {
	OrderID         string
	UserID          string
	StockID         string
	Quantity        int64
	PriceAtPurchase float64
	IsVIP           bool
}

// Job is a single unit of work tracked by the queue. Job instances returned
// from the Store are snapshots; mutating them directly does not change
// underlying storage state.
type Job struct {
	ID          uuid.UUID
	Payload     Payload
	Priority    Priority
	Status      Status
	Attempts    int
	MaxAttempts int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LockedUntil *time.Time
	NextRunAt   time.Time
}
