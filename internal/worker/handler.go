package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oakline-labs/orderproc/internal/orders"
	"github.com/oakline-labs/orderproc/internal/payment"
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/oakline-labs/orderproc/internal/stock"
	"github.com/oakline-labs/orderproc/internal/telemetry"
)

// Outcome classifies how a dispatched job's processing ended, so the caller
// (Pool) knows whether to Complete, MoveToFailed, or Retry the job.
type Outcome int

const (
	// OutcomeConfirmed means the order was reserved, charged, and confirmed.
	OutcomeConfirmed Outcome = iota
	// OutcomeBusinessFailed means a terminal, non-retryable failure occurred
	// before any stock was committed (insufficient stock, unknown stock or
	// order). Reason carries the human-readable cause.
	OutcomeBusinessFailed
	// OutcomeTransient means a retryable failure occurred. The queue should
	// apply backoff and redeliver.
	OutcomeTransient
	// OutcomeAlreadySettled means another attempt already confirmed or
	// failed this order (the idempotency guard of §4.4 step 1). The job
	// should simply be acknowledged.
	OutcomeAlreadySettled
)

// Result is the outcome of processing one job, plus context for logging and
// for the reason passed to queue.moveToFailed.
type Result struct {
	Outcome Outcome
	Reason  string
	Err     error
}

// Handler implements the C5 order-processing algorithm against a job
// payload: idempotency guard, CAS stock reservation, payment side-effect,
// order confirmation, and compensation on late transient failure.
type Handler struct {
	Stock   stock.Store
	Orders  orders.Store
	Payment payment.Gateway
	Logger  *slog.Logger
	// Metrics is optional; nil disables business metric recording.
	Metrics *telemetry.BusinessMetrics
}

// Process runs the full handler contract for job j and returns the
// classified Result. It never panics; all failure paths are represented in
// the returned Result.
func (h *Handler) Process(ctx context.Context, j *queue.Job) Result {
	order, err := h.Orders.GetOrder(ctx, j.Payload.OrderID)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			return Result{Outcome: OutcomeBusinessFailed, Reason: "order not found", Err: err}
		}
		return Result{Outcome: OutcomeTransient, Err: fmt.Errorf("read order: %w", err)}
	}
	if order.Status != orders.StatusPending {
		return Result{Outcome: OutcomeAlreadySettled}
	}

	snapshot, err := h.Stock.Reserve(ctx, j.Payload.StockID, j.Payload.Quantity)
	switch {
	case errors.Is(err, stock.ErrInsufficient):
		reason := "insufficient stock"
		h.failBusiness(ctx, j, reason)
		return Result{Outcome: OutcomeBusinessFailed, Reason: reason, Err: err}
	case errors.Is(err, stock.ErrNotFound):
		reason := "stock not found"
		h.failBusiness(ctx, j, reason)
		return Result{Outcome: OutcomeBusinessFailed, Reason: reason, Err: err}
	case errors.Is(err, stock.ErrVersionConflict):
		// The store already retried internally up to the bound in §4.1; a
		// conflict surfacing here means the bound was exhausted.
		return Result{Outcome: OutcomeTransient, Err: fmt.Errorf("reserve: %w", err)}
	case err != nil:
		return Result{Outcome: OutcomeTransient, Err: fmt.Errorf("reserve: %w", err)}
	}

	paymentStart := time.Now()
	paymentErr := h.Payment.Charge(ctx, payment.ChargeRequest{
		OrderID: order.ID,
		UserID:  order.UserID,
		Amount:  j.Payload.PriceAtPurchase * float64(j.Payload.Quantity),
	})
	if h.Metrics != nil {
		h.Metrics.PaymentDuration.Observe(time.Since(paymentStart).Seconds())
	}
	if paymentErr != nil {
		h.compensate(ctx, j, snapshot.ID, j.Payload.Quantity)
		return Result{Outcome: OutcomeTransient, Err: fmt.Errorf("payment charge: %w", paymentErr)}
	}

	if err := h.Orders.MarkConfirmed(ctx, order.ID); err != nil {
		if errors.Is(err, orders.ErrAlreadyTerminal) {
			return Result{Outcome: OutcomeAlreadySettled}
		}
		h.compensate(ctx, j, snapshot.ID, j.Payload.Quantity)
		return Result{Outcome: OutcomeTransient, Err: fmt.Errorf("mark confirmed: %w", err)}
	}

	if h.Metrics != nil {
		h.Metrics.OrdersConfirmed.Inc()
	}
	return Result{Outcome: OutcomeConfirmed}
}

func (h *Handler) failBusiness(ctx context.Context, j *queue.Job, reason string) {
	if err := h.Orders.MarkFailed(ctx, j.Payload.OrderID, reason); err != nil && !errors.Is(err, orders.ErrAlreadyTerminal) {
		h.Logger.Error("failed to mark order failed after business failure",
			slog.String("order_id", j.Payload.OrderID), slog.Any("err", err))
	}
	if h.Metrics != nil {
		h.Metrics.OrdersFailed.WithLabelValues(reason).Inc()
	}
}

// compensate releases a committed reservation after a transient failure
// downstream of a successful Reserve (§4.4 step 5). A failure here is
// logged as critical but never masks the original transient error.
func (h *Handler) compensate(ctx context.Context, j *queue.Job, stockID string, n int64) {
	if _, err := h.Stock.Release(ctx, stockID, n); err != nil {
		h.Logger.Error("CRITICAL: compensation release failed, stock may be under-counted",
			slog.String("stock_id", stockID), slog.String("order_id", j.Payload.OrderID),
			slog.Int64("quantity", n), slog.Any("err", err))
	}
}
