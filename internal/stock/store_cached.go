package stock

import (
	"context"

	"go.uber.org/zap"
)

// CachedStore wraps a Store with a Redis cache-aside read path. Reserve and
// Release always hit the underlying store directly and invalidate the
// cached snapshot on success; they never read or write through the cache
// themselves.
type CachedStore struct {
	store  Store
	cache  *ItemCache
	logger *zap.Logger
}

func NewCachedStore(store Store, cache *ItemCache, logger *zap.Logger) *CachedStore {
	return &CachedStore{store: store, cache: cache, logger: logger}
}

func (s *CachedStore) ReadStock(ctx context.Context, id string) (Stock, error) {
	if cached, err := s.cache.Get(ctx, id); err != nil {
		s.logger.Warn("cache read failed, falling back to store", zap.String("stock_id", id), zap.Error(err))
	} else if cached != nil {
		return *cached, nil
	}

	st, err := s.store.ReadStock(ctx, id)
	if err != nil {
		return Stock{}, err
	}

	if err := s.cache.Set(ctx, st); err != nil {
		s.logger.Warn("failed to populate stock cache", zap.String("stock_id", id), zap.Error(err))
	}

	return st, nil
}

func (s *CachedStore) Reserve(ctx context.Context, id string, n int64) (Stock, error) {
	st, err := s.store.Reserve(ctx, id, n)
	if err != nil {
		return Stock{}, err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate stock cache", zap.String("stock_id", id), zap.Error(err))
	}
	return st, nil
}

func (s *CachedStore) Release(ctx context.Context, id string, n int64) (Stock, error) {
	st, err := s.store.Release(ctx, id, n)
	if err != nil {
		return Stock{}, err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate stock cache", zap.String("stock_id", id), zap.Error(err))
	}
	return st, nil
}

var _ Store = (*CachedStore)(nil)
