package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oakline-labs/orderproc/internal/telemetry"
	"github.com/puzpuzpuz/xsync/v3"
)

// Queue is a durable, priority-aware job queue (spec C3). It delegates
// persistence to a Store and adds priority dispatch, backoff scheduling,
// lifecycle events, and stall detection on top.
type Queue struct {
	store        Store
	backoff      BackoffConfig
	stallTimeout time.Duration
	logger       *slog.Logger
	metrics      *telemetry.QueueMetrics
	subs         []Subscriber

	// inFlight tracks jobs this process currently holds the lock for, keyed
	// by job id. Retry reads the dispatched job's attempt count from it, and
	// Complete/Retry/MoveToFailed pass the stored job to subscribers.
	// Dispatch ordering itself is the Store's responsibility.
	inFlight *xsync.MapOf[uuid.UUID, Job]
}

func New(store Store, backoff BackoffConfig, stallTimeout time.Duration, metrics *telemetry.QueueMetrics, logger *slog.Logger) *Queue {
	return &Queue{
		store:        store,
		backoff:      backoff,
		stallTimeout: stallTimeout,
		logger:       logger,
		metrics:      metrics,
		inFlight:     xsync.NewMapOf[uuid.UUID, Job](),
	}
}

func (q *Queue) Subscribe(s Subscriber) {
	q.subs = append(q.subs, s)
}

func (q *Queue) classLabel(p Priority) string {
	if p == PriorityVIP {
		return "vip"
	}
	return "regular"
}

// Enqueue creates a new waiting job for payload at the given priority.
func (q *Queue) Enqueue(ctx context.Context, payload Payload, priority Priority) (Job, error) {
	now := time.Now()
	j := &Job{
		ID:          uuid.New(),
		Payload:     payload,
		Priority:    priority,
		Status:      StatusWaiting,
		MaxAttempts: q.backoff.MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRunAt:   now,
	}

	if err := q.store.Push(ctx, j); err != nil {
		return Job{}, err
	}

	if q.metrics != nil {
		q.metrics.Enqueued.WithLabelValues(q.classLabel(priority)).Inc()
	}
	q.notifyWaiting(ctx, *j)
	return *j, nil
}

// Dispatch pulls the next eligible job, if any, marking it Active.
func (q *Queue) Dispatch(ctx context.Context, lockFor time.Duration) (*Job, error) {
	j, err := q.store.Pull(ctx, lockFor)
	if err != nil || j == nil {
		return nil, err
	}

	q.inFlight.Store(j.ID, *j)
	if q.metrics != nil {
		q.metrics.DispatchLag.Observe(time.Since(j.CreatedAt).Seconds())
	}
	q.notifyActive(ctx, *j)
	return j, nil
}

// Complete acknowledges successful processing of id.
func (q *Queue) Complete(ctx context.Context, id uuid.UUID) error {
	if err := q.store.Complete(ctx, id); err != nil {
		return err
	}
	j, _ := q.inFlight.LoadAndDelete(id)
	if q.metrics != nil {
		q.metrics.Completed.Inc()
	}
	q.notifyCompleted(ctx, j)
	return nil
}

// Retry schedules id for another attempt after the backoff delay for its
// current attempt count, or moves it to Failed if attempts are exhausted.
func (q *Queue) Retry(ctx context.Context, id uuid.UUID, cause error) error {
	j, _ := q.inFlight.Load(id)
	attempt := j.Attempts + 1
	delay, _ := q.backoff.next(attempt)

	exhausted, err := q.store.Retry(ctx, id, cause.Error(), delay, q.backoff.MaxAttempts)
	if err != nil {
		return err
	}
	q.inFlight.Delete(id)

	if exhausted {
		if q.metrics != nil {
			q.metrics.Failed.Inc()
		}
		q.notifyFailed(ctx, j, cause.Error())
		return nil
	}

	q.logger.Info("job scheduled for retry",
		slog.String("job_id", id.String()), slog.Int("attempt", attempt), slog.Duration("delay", delay))
	return nil
}

// MoveToFailed short-circuits remaining retries, used for terminal business
// failures (spec §4.3 Bypass).
func (q *Queue) MoveToFailed(ctx context.Context, id uuid.UUID, reason string) error {
	if err := q.store.MoveToFailed(ctx, id, reason); err != nil {
		return err
	}
	j, _ := q.inFlight.LoadAndDelete(id)
	if q.metrics != nil {
		q.metrics.Failed.Inc()
	}
	q.notifyFailed(ctx, j, reason)
	return nil
}

// CheckStalled requeues Active jobs whose visibility timeout has passed.
func (q *Queue) CheckStalled(ctx context.Context) (int, error) {
	stalled, err := q.store.ListStalled(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	for _, j := range stalled {
		if err := q.store.Requeue(ctx, j.ID); err != nil {
			q.logger.Error("failed to requeue stalled job", slog.String("job_id", j.ID.String()), slog.Any("err", err))
			continue
		}
		q.inFlight.Delete(j.ID)
		if q.metrics != nil {
			q.metrics.Stalled.Inc()
		}
		q.notifyStalled(ctx, *j)
	}
	return len(stalled), nil
}

// Clean evicts terminal jobs beyond the retention window.
func (q *Queue) Clean(ctx context.Context, retention Retention) (int, error) {
	return q.store.Clean(ctx, retention)
}

func (q *Queue) Get(ctx context.Context, id uuid.UUID) (*Job, error) {
	return q.store.Get(ctx, id)
}

func (q *Queue) notifyWaiting(ctx context.Context, j Job) {
	for _, s := range q.subs {
		s.OnWaiting(ctx, j)
	}
}

func (q *Queue) notifyActive(ctx context.Context, j Job) {
	for _, s := range q.subs {
		s.OnActive(ctx, j)
	}
}

func (q *Queue) notifyCompleted(ctx context.Context, j Job) {
	for _, s := range q.subs {
		s.OnCompleted(ctx, j)
	}
}

func (q *Queue) notifyFailed(ctx context.Context, j Job, reason string) {
	for _, s := range q.subs {
		s.OnFailed(ctx, j, reason)
	}
}

func (q *Queue) notifyStalled(ctx context.Context, j Job) {
	for _, s := range q.subs {
		s.OnStalled(ctx, j)
	}
}
