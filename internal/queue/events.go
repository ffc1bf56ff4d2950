package queue

import "context"

// Subscriber receives queue lifecycle events (spec §4.3). Subscribers are
// invoked synchronously and single-threaded with respect to a given job,
// but different jobs may deliver concurrently.
type Subscriber interface {
	OnWaiting(ctx context.Context, j Job)
	OnActive(ctx context.Context, j Job)
	OnCompleted(ctx context.Context, j Job)
	OnFailed(ctx context.Context, j Job, reason string)
	OnStalled(ctx context.Context, j Job)
}

// NopSubscriber implements Subscriber with no-op handlers, so callers can
// embed it and override only the events they care about.
type NopSubscriber struct{}

func (NopSubscriber) OnWaiting(ctx context.Context, j Job)                {}
func (NopSubscriber) OnActive(ctx context.Context, j Job)                 {}
func (NopSubscriber) OnCompleted(ctx context.Context, j Job)              {}
func (NopSubscriber) OnFailed(ctx context.Context, j Job, reason string)  {}
func (NopSubscriber) OnStalled(ctx context.Context, j Job)                {}
