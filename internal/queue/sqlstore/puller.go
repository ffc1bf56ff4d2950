package sqlstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/uptrace/bun"
)

// Puller implements queue.Puller against a SQL backend using
// UPDATE ... WHERE id IN (subquery) RETURNING to perform selection and
// state transition as one atomic statement, avoiding a race between two
// workers pulling the same row.
//
// Unlike a plain FIFO job store, eligibility here is also ordered by
// priority: VIP jobs (queue.PriorityVIP) are selected ahead of regular
// jobs regardless of enqueue order, satisfying priority preemption at
// dispatch time without preempting jobs already marked Active.
type Puller struct {
	db *bun.DB
}

func NewPuller(db *bun.DB) *Puller {
	return &Puller{db: db}
}

// Pull selects the single highest-priority, oldest-enqueued Waiting job
// whose NextRunAt has passed and transitions it to Active, stamping
// LockedUntil for visibility-timeout tracking. Returns (nil, nil) if no
// job is eligible.
func (p *Puller) Pull(ctx context.Context, lockFor time.Duration) (*queue.Job, error) {
	now := time.Now()
	lockedUntil := now.Add(lockFor)

	subQuery := p.db.NewSelect().
		Model((*jobModel)(nil)).
		Column("id").
		Where("status = ?", string(queue.StatusWaiting)).
		Where("next_run_at <= ?", now).
		Order("priority ASC", "created_at ASC").
		Limit(1)

	var rows []jobModel
	err := p.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", string(queue.StatusActive)).
		Set("locked_until = ?", lockedUntil).
		Set("updated_at = ?", now).
		Where("id IN (?)", subQuery).
		Returning("*").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toJob(), nil
}

// Complete transitions an Active job to Completed. The job must currently
// be Active; if the update affects no rows, queue.ErrLockLost is returned.
func (p *Puller) Complete(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res, err := p.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", string(queue.StatusCompleted)).
		Set("locked_until = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", string(queue.StatusActive)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return queue.ErrLockLost
	}
	return nil
}

// Retry increments Attempts and reschedules id back to Waiting after delay,
// unless Attempts has reached maxAttempts, in which case the job is moved
// to Failed and exhausted=true is returned.
func (p *Puller) Retry(ctx context.Context, id uuid.UUID, reason string, delay time.Duration, maxAttempts int) (bool, error) {
	var m jobModel
	err := p.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return false, queue.ErrJobLost
	}
	if m.Status != string(queue.StatusActive) {
		return false, queue.ErrLockLost
	}

	now := time.Now()
	attempts := m.Attempts + 1
	exhausted := attempts >= maxAttempts

	q := p.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("attempts = ?", attempts).
		Set("last_error = ?", reason).
		Set("locked_until = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", string(queue.StatusActive))

	if exhausted {
		q = q.Set("status = ?", string(queue.StatusFailed))
	} else {
		q = q.Set("status = ?", string(queue.StatusWaiting)).
			Set("next_run_at = ?", now.Add(delay))
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, err
	}
	if !isAffected(res) {
		return false, queue.ErrLockLost
	}
	return exhausted, nil
}

// MoveToFailed transitions id straight to Failed, bypassing retries.
func (p *Puller) MoveToFailed(ctx context.Context, id uuid.UUID, reason string) error {
	now := time.Now()
	res, err := p.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", string(queue.StatusFailed)).
		Set("last_error = ?", reason).
		Set("locked_until = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return queue.ErrJobLost
	}
	return nil
}

// ListStalled returns Active jobs whose LockedUntil has passed as of now.
func (p *Puller) ListStalled(ctx context.Context, now time.Time) ([]*queue.Job, error) {
	var rows []jobModel
	err := p.db.NewSelect().
		Model(&rows).
		Where("status = ?", string(queue.StatusActive)).
		Where("locked_until IS NOT NULL AND locked_until < ?", now).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	jobs := make([]*queue.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toJob())
	}
	return jobs, nil
}

// Requeue returns a stalled Active job to Waiting without counting against
// Attempts.
func (p *Puller) Requeue(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	res, err := p.db.NewUpdate().
		Model((*jobModel)(nil)).
		Set("status = ?", string(queue.StatusWaiting)).
		Set("locked_until = NULL").
		Set("next_run_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", string(queue.StatusActive)).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return queue.ErrJobLost
	}
	return nil
}
