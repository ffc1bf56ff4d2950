package sqlstore

import (
	"context"

	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/uptrace/bun"
)

// Pusher implements queue.Pusher against a SQL backend.
type Pusher struct {
	db *bun.DB
}

func NewPusher(db *bun.DB) *Pusher {
	return &Pusher{db: db}
}

// Push inserts j in the Waiting state. It does not mutate j after insertion.
func (p *Pusher) Push(ctx context.Context, j *queue.Job) error {
	model := fromJob(j)
	_, err := p.db.NewInsert().Model(model).Exec(ctx)
	return err
}
