// Package sqlstore is the durable bun-backed implementation of queue.Store,
// used in production in place of queue.MemoryStore. It persists jobs to a
// SQL database (SQLite via modernc.org/sqlite in this service) and performs
// each state transition as a status-guarded UPDATE; Pull selects and claims
// a job in one UPDATE ... RETURNING statement, while Retry reads the row
// first to compute the new attempt count.
package sqlstore

import (
	"github.com/oakline-labs/orderproc/internal/queue"
	"github.com/uptrace/bun"
)

// Store composes Pusher, Puller, Observer, and Cleaner into queue.Store,
// mirroring the gqs family's interface split while sharing one underlying
// *bun.DB connection across them.
type Store struct {
	*Pusher
	*Puller
	*Observer
	*Cleaner
}

// New wires up a Store against db. Callers must run InitDB (or MustInitDB)
// against the same db before using the returned Store.
func New(db *bun.DB) *Store {
	return &Store{
		Pusher:   NewPusher(db),
		Puller:   NewPuller(db),
		Observer: NewObserver(db),
		Cleaner:  NewCleaner(db),
	}
}

var _ queue.Store = (*Store)(nil)
