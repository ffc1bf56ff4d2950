package intake

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oakline-labs/orderproc/internal/orders"
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/oakline-labs/orderproc/internal/stock"
)

func testIntake() (*Intake, *stock.MemoryStore, *orders.MemoryStore, *queue.Queue) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stockStore := stock.NewMemoryStore()
	orderStore := orders.NewMemoryStore()
	q := queue.New(queue.NewMemoryStore(), queue.DefaultBackoff, time.Second, nil, logger)
	return &Intake{Stock: stockStore, Orders: orderStore, Queue: q, Logger: logger}, stockStore, orderStore, q
}

func TestSubmitCreatesPendingOrderAndEnqueuesJob(t *testing.T) {
	in, stockStore, _, q := testIntake()
	stockStore.Seed(stock.Stock{ID: "s1", ProductID: "p1", Quantity: 5, Version: 1})
	ctx := context.Background()

	order, err := in.Submit(ctx, User{ID: "u1"}, Request{StockID: "s1", Quantity: 2, PriceAtPurchase: 9.99})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if order.Status != orders.StatusPending {
		t.Fatalf("expected pending order, got %s", order.Status)
	}

	dispatched, err := q.Dispatch(ctx, time.Second)
	if err != nil || dispatched == nil {
		t.Fatalf("expected a dispatched job, got %v err=%v", dispatched, err)
	}
	if dispatched.Payload.OrderID != order.ID {
		t.Fatalf("expected job payload to reference created order, got %s", dispatched.Payload.OrderID)
	}
	if dispatched.Priority != queue.PriorityDefault {
		t.Fatalf("expected default priority for non-VIP user, got %d", dispatched.Priority)
	}
}

func TestSubmitVIPUserGetsVIPPriority(t *testing.T) {
	in, stockStore, _, q := testIntake()
	stockStore.Seed(stock.Stock{ID: "s1", ProductID: "p1", Quantity: 5, Version: 1})
	ctx := context.Background()

	if _, err := in.Submit(ctx, User{ID: "u1", IsVIP: true}, Request{StockID: "s1", Quantity: 1, PriceAtPurchase: 1}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	dispatched, err := q.Dispatch(ctx, time.Second)
	if err != nil || dispatched == nil {
		t.Fatalf("expected a dispatched job, got %v err=%v", dispatched, err)
	}
	if dispatched.Priority != queue.PriorityVIP {
		t.Fatalf("expected VIP priority, got %d", dispatched.Priority)
	}
}

func TestSubmitRejectsInvalidQuantity(t *testing.T) {
	in, stockStore, _, _ := testIntake()
	stockStore.Seed(stock.Stock{ID: "s1", ProductID: "p1", Quantity: 5, Version: 1})

	_, err := in.Submit(context.Background(), User{ID: "u1"}, Request{StockID: "s1", Quantity: 0, PriceAtPurchase: 1})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSubmitRejectsUnknownStock(t *testing.T) {
	in, _, _, _ := testIntake()

	_, err := in.Submit(context.Background(), User{ID: "u1"}, Request{StockID: "missing", Quantity: 1, PriceAtPurchase: 1})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSubmitLeavesOrderPendingWhenEnqueueFails(t *testing.T) {
	in, stockStore, orderStore, _ := testIntake()
	stockStore.Seed(stock.Stock{ID: "s1", ProductID: "p1", Quantity: 5, Version: 1})
	in.Queue = queue.New(&alwaysFailPush{}, queue.DefaultBackoff, time.Second, nil, in.Logger)

	order, err := in.Submit(context.Background(), User{ID: "u1"}, Request{StockID: "s1", Quantity: 1, PriceAtPurchase: 1})
	if err == nil {
		t.Fatal("expected enqueue failure to surface")
	}
	if order.ID == "" {
		t.Fatal("expected an order to have been created despite enqueue failure")
	}

	got, getErr := orderStore.GetOrder(context.Background(), order.ID)
	if getErr != nil {
		t.Fatalf("get order: %v", getErr)
	}
	if got.Status != orders.StatusPending {
		t.Fatalf("expected order to remain pending, got %s", got.Status)
	}
}

// alwaysFailPush is a queue.Store whose every operation but Push is unused
// in this test; Push always fails to exercise the enqueue-failure path.
type alwaysFailPush struct {
	queue.Store
}

func (s *alwaysFailPush) Push(ctx context.Context, j *queue.Job) error {
	return errors.New("push failed")
}
