package sqlstore

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

func createTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*jobModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createDispatchIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_queue_jobs_dispatch").
		Column("status", "priority", "next_run_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createLockIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_queue_jobs_lock").
		Column("status", "locked_until").
		IfNotExists().
		Exec(ctx)
	return err
}

func createUpdatedIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*jobModel)(nil)).
		Index("idx_queue_jobs_updated").
		Column("status", "updated_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func initDB(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := createTable(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createDispatchIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createLockIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	if err := createUpdatedIndex(ctx, tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}

// InitDB creates the queue_jobs table and its indexes inside a single
// transaction. It is idempotent and safe to call on every startup.
func InitDB(ctx context.Context, db *bun.DB) error {
	return initDB(ctx, db)
}

// MustInitDB behaves like InitDB but panics on failure, for use during
// application bootstrap where a broken schema is unrecoverable.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := initDB(ctx, db); err != nil {
		panic(err)
	}
}
