package dlq

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/oakline-labs/orderproc/internal/orders"
	"github.com/oakline-labs/orderproc/internal/queue"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOnFailedMarksOrderFailed(t *testing.T) {
	orderStore := orders.NewMemoryStore()
	ctx := context.Background()
	o, err := orderStore.CreatePending(ctx, orders.Spec{UserID: "u1", StockID: "s1", Quantity: 1, PriceAtPurchase: 1})
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}

	obs := New(orderStore, discardLogger())
	obs.OnFailed(ctx, queue.Job{ID: uuid.New(), Payload: queue.Payload{OrderID: o.ID}}, "insufficient stock")

	got, _ := orderStore.GetOrder(ctx, o.ID)
	if got.Status != orders.StatusFailed {
		t.Fatalf("expected order failed, got %s", got.Status)
	}
	if got.FailureReason != "insufficient stock" {
		t.Fatalf("expected failure reason recorded, got %q", got.FailureReason)
	}
}

func TestOnFailedIsIdempotentWhenAlreadyTerminal(t *testing.T) {
	orderStore := orders.NewMemoryStore()
	ctx := context.Background()
	o, err := orderStore.CreatePending(ctx, orders.Spec{UserID: "u1", StockID: "s1", Quantity: 1, PriceAtPurchase: 1})
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}
	if err := orderStore.MarkConfirmed(ctx, o.ID); err != nil {
		t.Fatalf("mark confirmed: %v", err)
	}

	obs := New(orderStore, discardLogger())
	// Must not panic or overwrite the already-confirmed status.
	obs.OnFailed(ctx, queue.Job{ID: uuid.New(), Payload: queue.Payload{OrderID: o.ID}}, "stale failure")

	got, _ := orderStore.GetOrder(ctx, o.ID)
	if got.Status != orders.StatusConfirmed {
		t.Fatalf("expected order to remain confirmed, got %s", got.Status)
	}
}

func TestOnStalledDoesNotMutateOrder(t *testing.T) {
	orderStore := orders.NewMemoryStore()
	ctx := context.Background()
	o, err := orderStore.CreatePending(ctx, orders.Spec{UserID: "u1", StockID: "s1", Quantity: 1, PriceAtPurchase: 1})
	if err != nil {
		t.Fatalf("create pending: %v", err)
	}

	obs := New(orderStore, discardLogger())
	obs.OnStalled(ctx, queue.Job{ID: uuid.New(), Payload: queue.Payload{OrderID: o.ID}})

	got, _ := orderStore.GetOrder(ctx, o.ID)
	if got.Status != orders.StatusPending {
		t.Fatalf("expected order to remain pending after stall notification, got %s", got.Status)
	}
}
