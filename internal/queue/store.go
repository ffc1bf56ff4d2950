package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Pusher enqueues new jobs.
type Pusher interface {
	Push(ctx context.Context, j *Job) error
}

// Puller pulls the next eligible job and performs lifecycle transitions on
// it. Pull selects the highest-priority, oldest-enqueued Waiting job whose
// NextRunAt has passed, and marks it Active with a fresh LockedUntil — the
// visibility timeout backing at-least-once delivery.
type Puller interface {
	Pull(ctx context.Context, lockFor time.Duration) (*Job, error)
	Complete(ctx context.Context, id uuid.UUID) error
	// Retry reschedules id back to Waiting after delay, incrementing
	// Attempts. If attempts have been exhausted the store instead moves the
	// job to Failed and returns exhausted=true.
	Retry(ctx context.Context, id uuid.UUID, reason string, delay time.Duration, maxAttempts int) (exhausted bool, err error)
	MoveToFailed(ctx context.Context, id uuid.UUID, reason string) error
	// ListStalled returns Active jobs whose LockedUntil has passed as of now.
	ListStalled(ctx context.Context, now time.Time) ([]*Job, error)
	// Requeue returns a stalled Active job to Waiting without counting
	// against Attempts.
	Requeue(ctx context.Context, id uuid.UUID) error
}

// Observer provides read-only access to jobs, for diagnostics and the
// retention Cleaner. It never mutates state.
type Observer interface {
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	List(ctx context.Context, status Status, limit int) ([]*Job, error)
}

// Cleaner evicts terminal jobs beyond the configured retention window.
type Cleaner interface {
	Clean(ctx context.Context, retention Retention) (int, error)
}

// Store is the durable job-state store backing the queue (spec C3). It is
// the composition of the narrower interfaces above, mirroring the
// Puller/Pusher/Observer/Cleaner split of the gqs package family.
type Store interface {
	Pusher
	Puller
	Observer
	Cleaner
}
