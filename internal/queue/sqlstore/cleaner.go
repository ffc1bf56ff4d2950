package sqlstore

import (
	"context"

	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/uptrace/bun"
)

// Cleaner implements queue.Cleaner against a SQL backend, permanently
// deleting terminal jobs beyond the configured retention window.
type Cleaner struct {
	db *bun.DB
}

func NewCleaner(db *bun.DB) *Cleaner {
	return &Cleaner{db: db}
}

// Clean keeps the most recently updated retention.Completed Completed jobs
// and retention.Failed Failed jobs, deleting the rest.
func (c *Cleaner) Clean(ctx context.Context, retention queue.Retention) (int, error) {
	deleted := 0
	n, err := c.evictOldest(ctx, queue.StatusCompleted, retention.Completed)
	if err != nil {
		return deleted, err
	}
	deleted += n

	n, err = c.evictOldest(ctx, queue.StatusFailed, retention.Failed)
	if err != nil {
		return deleted, err
	}
	deleted += n
	return deleted, nil
}

func (c *Cleaner) evictOldest(ctx context.Context, status queue.Status, keep int) (int, error) {
	keepIDs := c.db.NewSelect().
		Model((*jobModel)(nil)).
		Column("id").
		Where("status = ?", string(status)).
		Order("updated_at DESC").
		Limit(keep)

	res, err := c.db.NewDelete().
		Model((*jobModel)(nil)).
		Where("status = ?", string(status)).
		Where("id NOT IN (?)", keepIDs).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}
