// Package dlq implements the dead-letter observer (spec C6): it reacts to
// terminal failed jobs by marking the owning order failed, and logs stalled
// jobs for monitoring without mutating anything.
package dlq

import (
	"context"
	"errors"
	"log/slog"

	"github.com/oakline-labs/orderproc/internal/orders"
	"github.com/oakline-labs/orderproc/internal/queue"
)

// Observer subscribes to queue lifecycle events as a queue.Subscriber. It
// only acts on OnFailed and OnStalled; OnWaiting/OnActive/OnCompleted are
// no-ops.
type Observer struct {
	queue.NopSubscriber
	Orders orders.Store
	Logger *slog.Logger
}

func New(store orders.Store, logger *slog.Logger) *Observer {
	return &Observer{Orders: store, Logger: logger}
}

// OnFailed marks the job's order failed. MarkFailed is idempotent on a
// terminal status, so this is safe even if the worker already settled the
// order itself (spec §4.6).
func (o *Observer) OnFailed(ctx context.Context, j queue.Job, reason string) {
	err := o.Orders.MarkFailed(ctx, j.Payload.OrderID, reason)
	if err == nil || errors.Is(err, orders.ErrAlreadyTerminal) {
		return
	}
	o.Logger.Error("dlq observer failed to mark order failed",
		slog.String("order_id", j.Payload.OrderID), slog.String("reason", reason), slog.Any("err", err))
}

// OnStalled logs a stalled job for monitoring; it never mutates order
// state, since a stalled job is simply redelivered by the queue.
func (o *Observer) OnStalled(ctx context.Context, j queue.Job) {
	o.Logger.Warn("job stalled and will be redelivered",
		slog.String("job_id", j.ID.String()), slog.String("order_id", j.Payload.OrderID), slog.Int("attempts", j.Attempts))
}

var _ queue.Subscriber = (*Observer)(nil)
