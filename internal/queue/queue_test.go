package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testQueue() *Queue {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(NewMemoryStore(), BackoffConfig{MaxAttempts: 5, Base: time.Millisecond, Multiplier: 2}, time.Second, nil, logger)
}

type recordingSubscriber struct {
	mu       sync.Mutex
	waiting  []Job
	active   []Job
	complete []Job
	failed   []Job
	stalled  []Job
}

func (r *recordingSubscriber) OnWaiting(ctx context.Context, j Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waiting = append(r.waiting, j)
}
func (r *recordingSubscriber) OnActive(ctx context.Context, j Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = append(r.active, j)
}
func (r *recordingSubscriber) OnCompleted(ctx context.Context, j Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = append(r.complete, j)
}
func (r *recordingSubscriber) OnFailed(ctx context.Context, j Job, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, j)
}
func (r *recordingSubscriber) OnStalled(ctx context.Context, j Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stalled = append(r.stalled, j)
}

func TestEnqueueDispatchFIFOWithinClass(t *testing.T) {
	q := testQueue()
	ctx := context.Background()

	first, err := q.Enqueue(ctx, Payload{OrderID: "o1"}, PriorityDefault)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(time.Millisecond)
	second, err := q.Enqueue(ctx, Payload{OrderID: "o2"}, PriorityDefault)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := q.Dispatch(ctx, time.Second)
	if err != nil || got == nil {
		t.Fatalf("expected a job, got %v err=%v", got, err)
	}
	if got.ID != first.ID {
		t.Fatalf("expected FIFO order to dispatch %s first, got %s", first.ID, got.ID)
	}

	got2, err := q.Dispatch(ctx, time.Second)
	if err != nil || got2 == nil {
		t.Fatalf("expected a second job, got %v err=%v", got2, err)
	}
	if got2.ID != second.ID {
		t.Fatalf("expected second dispatch to be %s, got %s", second.ID, got2.ID)
	}
}

func TestVIPPriorityDominance(t *testing.T) {
	q := testQueue()
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Payload{OrderID: "regular"}, PriorityDefault)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vip, err := q.Enqueue(ctx, Payload{OrderID: "vip"}, PriorityVIP)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := q.Dispatch(ctx, time.Second)
	if err != nil || got == nil {
		t.Fatalf("expected a job, got %v err=%v", got, err)
	}
	if got.ID != vip.ID {
		t.Fatalf("expected VIP job to dispatch first, got order %s", got.Payload.OrderID)
	}
}

func TestCompleteAcknowledgesJob(t *testing.T) {
	q := testQueue()
	ctx := context.Background()
	sub := &recordingSubscriber{}
	q.Subscribe(sub)

	j, _ := q.Enqueue(ctx, Payload{OrderID: "o1"}, PriorityDefault)
	if _, err := q.Dispatch(ctx, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.Complete(ctx, j.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := q.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed status, got %s", got.Status)
	}
	if len(sub.complete) != 1 {
		t.Fatalf("expected one completed event, got %d", len(sub.complete))
	}
}

func TestRetryThenExhaustEmitsFailed(t *testing.T) {
	q := testQueue()
	ctx := context.Background()
	sub := &recordingSubscriber{}
	q.Subscribe(sub)

	j, _ := q.Enqueue(ctx, Payload{OrderID: "o1"}, PriorityDefault)

	cause := errors.New("transient")
	for i := 0; i < 5; i++ {
		dispatched, err := q.Dispatch(ctx, time.Second)
		if err != nil || dispatched == nil {
			t.Fatalf("attempt %d: expected a job, got %v err=%v", i+1, dispatched, err)
		}
		if err := q.Retry(ctx, dispatched.ID, cause); err != nil {
			t.Fatalf("attempt %d: unexpected retry error: %v", i+1, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	got, err := q.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected failed status after exhausting retries, got %s", got.Status)
	}
	if len(sub.failed) != 1 {
		t.Fatalf("expected exactly one failed event, got %d", len(sub.failed))
	}
}

func TestMoveToFailedBypassesRetries(t *testing.T) {
	q := testQueue()
	ctx := context.Background()
	sub := &recordingSubscriber{}
	q.Subscribe(sub)

	j, _ := q.Enqueue(ctx, Payload{OrderID: "o1"}, PriorityDefault)
	if _, err := q.Dispatch(ctx, time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := q.MoveToFailed(ctx, j.ID, "insufficient stock"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := q.Get(ctx, j.ID)
	if got.Status != StatusFailed || got.Attempts != 0 {
		t.Fatalf("expected immediate failed with no attempts consumed, got %+v", got)
	}
	if len(sub.failed) != 1 {
		t.Fatalf("expected one failed event, got %d", len(sub.failed))
	}
}

func TestCheckStalledRequeues(t *testing.T) {
	q := testQueue()
	ctx := context.Background()
	sub := &recordingSubscriber{}
	q.Subscribe(sub)

	j, _ := q.Enqueue(ctx, Payload{OrderID: "o1"}, PriorityDefault)
	if _, err := q.Dispatch(ctx, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	n, err := q.CheckStalled(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 stalled job, got %d", n)
	}

	got, _ := q.Get(ctx, j.ID)
	if got.Status != StatusWaiting {
		t.Fatalf("expected job returned to waiting, got %s", got.Status)
	}
	if len(sub.stalled) != 1 {
		t.Fatalf("expected one stalled event, got %d", len(sub.stalled))
	}
}

func TestDispatchReturnsNilWhenEmpty(t *testing.T) {
	q := testQueue()
	got, err := q.Dispatch(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no job, got %+v", got)
	}
}
