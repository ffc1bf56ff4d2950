// Package intake implements order submission (spec C4): validating a
// request, creating a PENDING order, and enqueueing the job that will
// eventually reserve stock, charge payment, and confirm it.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/oakline-labs/orderproc/internal/orders"
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/oakline-labs/orderproc/internal/stock"
	"github.com/oakline-labs/orderproc/internal/telemetry"
)

// ErrInvalidRequest is returned for malformed submissions before any order
// is created.
var ErrInvalidRequest = errors.New("intake: invalid request")

// User is the verified caller identity the intake receives; authentication
// itself is out of scope (spec §6).
type User struct {
	ID    string
	IsVIP bool
}

// Request is the caller-supplied order intent.
type Request struct {
	StockID         string
	Quantity        int64
	PriceAtPurchase float64
}

func (r Request) validate() error {
	if r.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be >= 1", ErrInvalidRequest)
	}
	if r.PriceAtPurchase < 0 {
		return fmt.Errorf("%w: priceAtPurchase must be >= 0", ErrInvalidRequest)
	}
	if r.StockID == "" {
		return fmt.Errorf("%w: stockId is required", ErrInvalidRequest)
	}
	return nil
}

// Intake wires order creation to stock lookup and queue submission.
type Intake struct {
	Stock  stock.Store
	Orders orders.Store
	Queue  *queue.Queue
	Logger *slog.Logger
	// Metrics is optional; nil disables business metric recording.
	Metrics *telemetry.BusinessMetrics
}

// Submit validates req, creates a PENDING order, and enqueues the
// corresponding job at a priority derived from user.IsVIP. If enqueueing
// fails the order is left PENDING rather than deleted — the DLQ observer
// and operator tooling are the recovery path (spec §4.5 step 5).
func (in *Intake) Submit(ctx context.Context, user User, req Request) (orders.Order, error) {
	if err := req.validate(); err != nil {
		return orders.Order{}, err
	}

	if _, err := in.Stock.ReadStock(ctx, req.StockID); err != nil {
		if errors.Is(err, stock.ErrNotFound) {
			return orders.Order{}, fmt.Errorf("%w: unknown stock %q", ErrInvalidRequest, req.StockID)
		}
		return orders.Order{}, fmt.Errorf("read stock: %w", err)
	}

	order, err := in.Orders.CreatePending(ctx, orders.Spec{
		UserID:          user.ID,
		StockID:         req.StockID,
		Quantity:        req.Quantity,
		PriceAtPurchase: req.PriceAtPurchase,
		IsVIP:           user.IsVIP,
	})
	if err != nil {
		return orders.Order{}, fmt.Errorf("create pending order: %w", err)
	}
	if in.Metrics != nil {
		in.Metrics.OrdersCreated.Inc()
	}

	priority := queue.PriorityDefault
	if user.IsVIP {
		priority = queue.PriorityVIP
	}

	payload := queue.Payload{
		OrderID:         order.ID,
		UserID:          order.UserID,
		StockID:         order.StockID,
		Quantity:        order.Quantity,
		PriceAtPurchase: order.PriceAtPurchase,
		IsVIP:           order.IsVIP,
	}
	if _, err := in.Queue.Enqueue(ctx, payload, priority); err != nil {
		in.Logger.Error("enqueue failed, order left pending for operator recovery",
			slog.String("order_id", order.ID), slog.Any("err", err))
		return order, fmt.Errorf("enqueue job: %w", err)
	}

	return order, nil
}
