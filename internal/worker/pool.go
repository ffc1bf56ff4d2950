package worker

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"time"

	"github.com/oakline-labs/orderproc/internal/queue"
	"golang.org/x/sync/errgroup"
)

// Config tunes a Pool's concurrency and timing behavior.
type Config struct {
	// Workers is the number of concurrent dispatch loops. Defaults to
	// runtime.NumCPU() if zero or negative (spec §5 scheduling model).
	Workers int
	// LockFor is the visibility timeout handed to Dispatch; exceeded
	// handlers are marked stalled and redelivered.
	LockFor time.Duration
	// PollInterval is how long a worker sleeps after finding no eligible
	// job before dispatching again.
	PollInterval time.Duration
	// ShutdownGrace bounds how long Run waits for in-flight handlers to
	// finish after ctx is cancelled before returning (default 30s).
	ShutdownGrace time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LockFor <= 0 {
		c.LockFor = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 200 * time.Millisecond
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = 30 * time.Second
	}
	return c
}

// Pool runs a configurable number of dispatch loops against a queue.Queue,
// each sequentially pulling a job, running it through Handler, and applying
// the resulting lifecycle transition (spec §5: many workers, strictly
// sequential processing per job within a worker).
type Pool struct {
	queue   *queue.Queue
	handler *Handler
	cfg     Config
	logger  *slog.Logger
}

func NewPool(q *queue.Queue, handler *Handler, cfg Config, logger *slog.Logger) *Pool {
	return &Pool{queue: q, handler: handler, cfg: cfg.withDefaults(), logger: logger}
}

// Run drives the pool until ctx is cancelled. On cancellation, already
// dispatched handlers are allowed to run to completion within
// cfg.ShutdownGrace; any job still in flight past that point is reclaimed
// later by the queue's own stall detection rather than forcibly aborted.
func (p *Pool) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		workerID := i
		g.Go(func() error {
			p.loop(gctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			return
		}

		j, err := p.queue.Dispatch(ctx, p.cfg.LockFor)
		if err != nil {
			p.logger.Error("dispatch failed", slog.Int("worker", workerID), slog.Any("err", err))
			time.Sleep(p.cfg.PollInterval)
			continue
		}
		if j == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.PollInterval):
			}
			continue
		}

		p.handle(ctx, workerID, j)
	}
}

func (p *Pool) handle(ctx context.Context, workerID int, j *queue.Job) {
	// Give an in-flight handler up to ShutdownGrace to finish even if the
	// pool's context is cancelled before or while it runs, per §5's
	// cooperative cancellation contract.
	handleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	go func() {
		select {
		case <-handleCtx.Done():
		case <-ctx.Done():
			select {
			case <-handleCtx.Done():
			case <-time.After(p.cfg.ShutdownGrace):
				cancel()
			}
		}
	}()

	result := p.handler.Process(handleCtx, j)
	logger := p.logger.With(slog.String("job_id", j.ID.String()), slog.String("order_id", j.Payload.OrderID), slog.Int("worker", workerID))

	switch result.Outcome {
	case OutcomeConfirmed, OutcomeAlreadySettled:
		if err := p.queue.Complete(handleCtx, j.ID); err != nil {
			logger.Error("failed to acknowledge completed job", slog.Any("err", err))
		}
	case OutcomeBusinessFailed:
		if err := p.queue.MoveToFailed(handleCtx, j.ID, result.Reason); err != nil {
			logger.Error("failed to move job to failed", slog.Any("err", err))
		}
	case OutcomeTransient:
		cause := result.Err
		if cause == nil {
			cause = errors.New("transient failure")
		}
		if err := p.queue.Retry(handleCtx, j.ID, cause); err != nil {
			logger.Error("failed to schedule retry", slog.Any("err", err))
		}
	}
}
