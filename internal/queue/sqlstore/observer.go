package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/uptrace/bun"
)

// Observer implements queue.Observer against a SQL backend. It never
// mutates state, returning independent snapshots of storage.
type Observer struct {
	db *bun.DB
}

func NewObserver(db *bun.DB) *Observer {
	return &Observer{db: db}
}

// Get retrieves a job by id, returning (nil, nil) if it doesn't exist.
func (o *Observer) Get(ctx context.Context, id uuid.UUID) (*queue.Job, error) {
	var m jobModel
	err := o.db.NewSelect().Model(&m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m.toJob(), nil
}

// List returns up to limit jobs filtered by status, oldest first. A zero
// status applies no filter; a non-positive limit applies none either.
func (o *Observer) List(ctx context.Context, status queue.Status, limit int) ([]*queue.Job, error) {
	query := o.db.NewSelect().Model((*jobModel)(nil)).Order("created_at ASC")
	if status != "" {
		query = query.Where("status = ?", string(status))
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []jobModel
	if err := query.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	jobs := make([]*queue.Job, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toJob())
	}
	return jobs, nil
}
