package stock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ItemCache is a Redis-backed cache-aside layer in front of ReadStock. It is
// never consulted by Reserve or Release; mutations always go straight to the
// underlying store and invalidate the cached snapshot.
type ItemCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewItemCache(addr string, ttl time.Duration) (*ItemCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &ItemCache{client: client, ttl: ttl}, nil
}

func (c *ItemCache) Close() error {
	return c.client.Close()
}

func cacheKey(id string) string {
	return fmt.Sprintf("stock:%s", id)
}

func (c *ItemCache) Get(ctx context.Context, id string) (*Stock, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var st Stock
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stock: %w", err)
	}
	return &st, nil
}

func (c *ItemCache) Set(ctx context.Context, st Stock) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal stock: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(st.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

func (c *ItemCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, cacheKey(id)).Err()
}
