package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/oakline-labs/orderproc/internal/queue/sqlstore"
)

func newJob(priority queue.Priority, orderID string) *queue.Job {
	now := time.Now()
	return &queue.Job{
		ID:          uuid.New(),
		Payload:     queue.Payload{OrderID: orderID},
		Priority:    priority,
		Status:      queue.StatusWaiting,
		MaxAttempts: 5,
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRunAt:   now,
	}
}

func TestPushAndGet(t *testing.T) {
	db := newTestDB(t)
	store := sqlstore.New(db)
	ctx := context.Background()

	j := newJob(queue.PriorityDefault, "o1")
	if err := store.Push(ctx, j); err != nil {
		t.Fatalf("push: %v", err)
	}

	got, err := store.Get(ctx, j.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected job, got nil")
	}
	if got.Status != queue.StatusWaiting {
		t.Fatalf("expected waiting status, got %s", got.Status)
	}
}

func TestPullOrdersByPriorityThenAge(t *testing.T) {
	db := newTestDB(t)
	store := sqlstore.New(db)
	ctx := context.Background()

	regular := newJob(queue.PriorityDefault, "regular")
	if err := store.Push(ctx, regular); err != nil {
		t.Fatalf("push regular: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	vip := newJob(queue.PriorityVIP, "vip")
	if err := store.Push(ctx, vip); err != nil {
		t.Fatalf("push vip: %v", err)
	}

	got, err := store.Pull(ctx, time.Second)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if got == nil {
		t.Fatal("expected a job")
	}
	if got.Payload.OrderID != "vip" {
		t.Fatalf("expected vip job dispatched first, got %s", got.Payload.OrderID)
	}
	if got.Status != queue.StatusActive {
		t.Fatalf("expected active status after pull, got %s", got.Status)
	}
}

func TestPullIsEmptyWhenNoneEligible(t *testing.T) {
	db := newTestDB(t)
	store := sqlstore.New(db)
	ctx := context.Background()

	got, err := store.Pull(ctx, time.Second)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if got != nil {
		t.Fatalf("expected no job, got %+v", got)
	}
}

func TestCompleteRequiresActiveStatus(t *testing.T) {
	db := newTestDB(t)
	store := sqlstore.New(db)
	ctx := context.Background()

	j := newJob(queue.PriorityDefault, "o1")
	if err := store.Push(ctx, j); err != nil {
		t.Fatalf("push: %v", err)
	}

	if err := store.Complete(ctx, j.ID); err == nil {
		t.Fatal("expected error completing a waiting job")
	}

	if _, err := store.Pull(ctx, time.Second); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if err := store.Complete(ctx, j.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, _ := store.Get(ctx, j.ID)
	if got.Status != queue.StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestRetryReschedulesThenExhausts(t *testing.T) {
	db := newTestDB(t)
	store := sqlstore.New(db)
	ctx := context.Background()

	j := newJob(queue.PriorityDefault, "o1")
	j.MaxAttempts = 2
	if err := store.Push(ctx, j); err != nil {
		t.Fatalf("push: %v", err)
	}

	if _, err := store.Pull(ctx, time.Second); err != nil {
		t.Fatalf("pull: %v", err)
	}
	exhausted, err := store.Retry(ctx, j.ID, "transient", time.Millisecond, 2)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if exhausted {
		t.Fatal("expected first retry to not be exhausted")
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := store.Pull(ctx, time.Second); err != nil {
		t.Fatalf("pull 2: %v", err)
	}
	exhausted, err = store.Retry(ctx, j.ID, "transient again", time.Millisecond, 2)
	if err != nil {
		t.Fatalf("retry 2: %v", err)
	}
	if !exhausted {
		t.Fatal("expected second retry to exhaust max attempts")
	}

	got, _ := store.Get(ctx, j.ID)
	if got.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", got.Status)
	}
	if got.Attempts != 2 {
		t.Fatalf("expected 2 attempts recorded, got %d", got.Attempts)
	}
}

func TestMoveToFailedBypassesRetries(t *testing.T) {
	db := newTestDB(t)
	store := sqlstore.New(db)
	ctx := context.Background()

	j := newJob(queue.PriorityDefault, "o1")
	if err := store.Push(ctx, j); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := store.MoveToFailed(ctx, j.ID, "insufficient stock"); err != nil {
		t.Fatalf("move to failed: %v", err)
	}

	got, _ := store.Get(ctx, j.ID)
	if got.Status != queue.StatusFailed || got.Attempts != 0 {
		t.Fatalf("expected immediate failed with no attempts consumed, got %+v", got)
	}
}

func TestListStalledAndRequeue(t *testing.T) {
	db := newTestDB(t)
	store := sqlstore.New(db)
	ctx := context.Background()

	j := newJob(queue.PriorityDefault, "o1")
	if err := store.Push(ctx, j); err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := store.Pull(ctx, time.Millisecond); err != nil {
		t.Fatalf("pull: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	stalled, err := store.ListStalled(ctx, time.Now())
	if err != nil {
		t.Fatalf("list stalled: %v", err)
	}
	if len(stalled) != 1 {
		t.Fatalf("expected 1 stalled job, got %d", len(stalled))
	}

	if err := store.Requeue(ctx, j.ID); err != nil {
		t.Fatalf("requeue: %v", err)
	}
	got, _ := store.Get(ctx, j.ID)
	if got.Status != queue.StatusWaiting {
		t.Fatalf("expected waiting after requeue, got %s", got.Status)
	}
}

func TestCleanEvictsBeyondRetention(t *testing.T) {
	db := newTestDB(t)
	store := sqlstore.New(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		j := newJob(queue.PriorityDefault, "o1")
		if err := store.Push(ctx, j); err != nil {
			t.Fatalf("push: %v", err)
		}
		got, err := store.Pull(ctx, time.Second)
		if err != nil {
			t.Fatalf("pull: %v", err)
		}
		if err := store.Complete(ctx, got.ID); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}

	deleted, err := store.Clean(ctx, queue.Retention{Completed: 1, Failed: 10})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 evicted, got %d", deleted)
	}

	remaining, err := store.List(ctx, queue.StatusCompleted, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining completed job, got %d", len(remaining))
	}
}
