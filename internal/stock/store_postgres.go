package stock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// maxCASRetries bounds the internal fresh-read retry loop on a lost CAS race
// (§5: "bounded at 3 iterations, no sleep").
const maxCASRetries = 3

// PostgresStore implements Store against a Postgres "stocks" table with an
// explicit version column used for optimistic concurrency control.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore opens a Postgres-backed Store. The stock component is
// logged with zap rather than slog.
func NewPostgresStore(connectionString string, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) ReadStock(ctx context.Context, id string) (Stock, error) {
	var st Stock
	query := `SELECT id, product_id, name, description, quantity, version FROM stocks WHERE id = $1`
	err := s.db.QueryRowContext(ctx, query, id).Scan(&st.ID, &st.ProductID, &st.Name, &st.Description, &st.Quantity, &st.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return Stock{}, ErrNotFound
	}
	if err != nil {
		return Stock{}, fmt.Errorf("failed to read stock %s: %w", id, err)
	}
	return st, nil
}

// Reserve decrements quantity by n, retrying on a lost CAS race up to
// maxCASRetries times with a fresh read each time.
func (s *PostgresStore) Reserve(ctx context.Context, id string, n int64) (Stock, error) {
	if n <= 0 {
		return Stock{}, ErrInvalidAmount
	}

	var lastErr error
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		current, err := s.ReadStock(ctx, id)
		if err != nil {
			return Stock{}, err
		}
		if current.Quantity < n {
			return Stock{}, ErrInsufficient
		}

		query := `
			UPDATE stocks
			SET quantity = quantity - $1, version = version + 1
			WHERE id = $2 AND version = $3 AND quantity >= $1
			RETURNING quantity, version
		`
		var updated Stock
		updated.ID = current.ID
		updated.ProductID = current.ProductID
		updated.Name = current.Name
		updated.Description = current.Description
		err = s.db.QueryRowContext(ctx, query, n, id, current.Version).Scan(&updated.Quantity, &updated.Version)
		if errors.Is(err, sql.ErrNoRows) {
			lastErr = ErrVersionConflict
			s.logger.Warn("reserve lost CAS race, retrying",
				zap.String("stock_id", id), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Stock{}, fmt.Errorf("failed to reserve stock %s: %w", id, err)
		}
		return updated, nil
	}

	s.logger.Error("reserve exhausted CAS retries", zap.String("stock_id", id))
	return Stock{}, lastErr
}

// Release increments quantity by n, retrying on a lost CAS race up to
// maxCASRetries times with a fresh read each time.
func (s *PostgresStore) Release(ctx context.Context, id string, n int64) (Stock, error) {
	if n <= 0 {
		return Stock{}, ErrInvalidAmount
	}

	var lastErr error
	for attempt := 0; attempt < maxCASRetries; attempt++ {
		current, err := s.ReadStock(ctx, id)
		if err != nil {
			return Stock{}, err
		}

		query := `
			UPDATE stocks
			SET quantity = quantity + $1, version = version + 1
			WHERE id = $2 AND version = $3
			RETURNING quantity, version
		`
		var updated Stock
		updated.ID = current.ID
		updated.ProductID = current.ProductID
		updated.Name = current.Name
		updated.Description = current.Description
		err = s.db.QueryRowContext(ctx, query, n, id, current.Version).Scan(&updated.Quantity, &updated.Version)
		if errors.Is(err, sql.ErrNoRows) {
			lastErr = ErrVersionConflict
			s.logger.Warn("release lost CAS race, retrying",
				zap.String("stock_id", id), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return Stock{}, fmt.Errorf("failed to release stock %s: %w", id, err)
		}
		return updated, nil
	}

	s.logger.Error("release exhausted CAS retries", zap.String("stock_id", id))
	return Stock{}, lastErr
}
