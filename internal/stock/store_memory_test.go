package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemoryStoreReserveHappyPath(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(Stock{ID: "s1", ProductID: "p1", Quantity: 100, Version: 1})

	got, err := s.Reserve(context.Background(), "s1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Quantity != 95 {
		t.Fatalf("expected quantity 95, got %d", got.Quantity)
	}
	if got.Version != 2 {
		t.Fatalf("expected version 2, got %d", got.Version)
	}
}

func TestMemoryStoreReserveInsufficient(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(Stock{ID: "s1", ProductID: "p1", Quantity: 1, Version: 1})

	_, err := s.Reserve(context.Background(), "s1", 2)
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("expected ErrInsufficient, got %v", err)
	}

	st, _ := s.ReadStock(context.Background(), "s1")
	if st.Quantity != 1 || st.Version != 1 {
		t.Fatalf("expected no mutation on insufficient reserve, got %+v", st)
	}
}

func TestMemoryStoreReserveNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Reserve(context.Background(), "missing", 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreReserveInvalidAmount(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(Stock{ID: "s1", Quantity: 10, Version: 1})

	if _, err := s.Reserve(context.Background(), "s1", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestMemoryStoreReleaseIncrementsAndVersions(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(Stock{ID: "s1", Quantity: 10, Version: 1})

	got, err := s.Release(context.Background(), "s1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Quantity != 13 || got.Version != 2 {
		t.Fatalf("expected quantity 13 version 2, got %+v", got)
	}
}

// TestMemoryStoreConcurrentDepletion exercises the no-oversell and
// conservation properties under a concurrent workload: quantity 5 with 5
// concurrent reservations of 2 each must yield exactly 2 successes.
func TestMemoryStoreConcurrentDepletion(t *testing.T) {
	s := NewMemoryStore()
	s.Seed(Stock{ID: "s1", Quantity: 5, Version: 1})

	var wg sync.WaitGroup
	results := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Reserve(context.Background(), "s1", 2)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		if err == nil {
			succeeded++
		} else if errors.Is(err, ErrInsufficient) {
			insufficient++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != 2 {
		t.Fatalf("expected 2 successful reservations, got %d", succeeded)
	}
	if insufficient != 3 {
		t.Fatalf("expected 3 insufficient rejections, got %d", insufficient)
	}

	final, _ := s.ReadStock(context.Background(), "s1")
	if final.Quantity != 1 {
		t.Fatalf("expected final quantity 1, got %d", final.Quantity)
	}
}
