package orders

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests in place of MongoDB.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]Order
	seq    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: map[string]Order{}}
}

func (s *MemoryStore) CreatePending(ctx context.Context, spec Spec) (Order, error) {
	if spec.Quantity < 1 || spec.PriceAtPurchase < 0 || spec.StockID == "" {
		return Order{}, ErrInvalidSpec
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := time.Now()
	o := Order{
		ID:              fmt.Sprintf("order-%d", s.seq),
		UserID:          spec.UserID,
		StockID:         spec.StockID,
		Quantity:        spec.Quantity,
		PriceAtPurchase: spec.PriceAtPurchase,
		Status:          StatusPending,
		IsVIP:           spec.IsVIP,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.orders[o.ID] = o
	return o, nil
}

func (s *MemoryStore) markTerminal(id string, status Status, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status.Terminal() {
		return ErrAlreadyTerminal
	}

	o.Status = status
	o.FailureReason = reason
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

func (s *MemoryStore) MarkConfirmed(ctx context.Context, id string) error {
	return s.markTerminal(id, StatusConfirmed, "")
}

func (s *MemoryStore) MarkFailed(ctx context.Context, id, reason string) error {
	return s.markTerminal(id, StatusFailed, reason)
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) ListOrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []Order
	for _, o := range s.orders {
		if o.UserID == userID {
			res = append(res, o)
		}
	}
	for i := 0; i < len(res); i++ {
		for j := i + 1; j < len(res); j++ {
			if res[j].CreatedAt.After(res[i].CreatedAt) {
				res[i], res[j] = res[j], res[i]
			}
		}
	}
	return res, nil
}

var _ Store = (*MemoryStore)(nil)
