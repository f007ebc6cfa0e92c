package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/try_decrement.lua
var tryDecrementScript string

//go:embed scripts/restock.lua
var restockScript string

// ErrKeyNotLoaded is returned when a product's stock counter has not been
// synced into Redis; callers fall back to the database path.
var ErrKeyNotLoaded = fmt.Errorf("inventory key not loaded")

type Client struct {
	rdb          *redis.Client
	tryDecrement *redis.Script
	restock      *redis.Script
}

// NewClient creates a new Redis client with the inventory Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:          rdb,
		tryDecrement: redis.NewScript(tryDecrementScript),
		restock:      redis.NewScript(restockScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func stockKey(productID string) string {
	return fmt.Sprintf("inventory:%s", productID)
}

// TryDecrement atomically checks and decrements a product's stock counter.
// Returns false when stock is insufficient; the counter never goes negative.
func (c *Client) TryDecrement(ctx context.Context, productID string, qty int) (bool, error) {
	result, err := c.tryDecrement.Run(ctx, c.rdb, []string{stockKey(productID)}, qty).Result()
	if err != nil {
		return false, fmt.Errorf("try_decrement script failed: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type %T", result)
	}
	switch code {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, ErrKeyNotLoaded
	}
}

// Restock atomically returns quantity to a product's stock counter
func (c *Client) Restock(ctx context.Context, productID string, qty int) error {
	result, err := c.restock.Run(ctx, c.rdb, []string{stockKey(productID)}, qty).Result()
	if err != nil {
		return fmt.Errorf("restock script failed: %w", err)
	}
	if code, ok := result.(int64); ok && code == -1 {
		return ErrKeyNotLoaded
	}
	return nil
}

// InitStock seeds a product's stock counter
func (c *Client) InitStock(ctx context.Context, productID string, stock int) error {
	return c.rdb.Set(ctx, stockKey(productID), stock, 0).Err()
}

// GetStock reads a product's stock counter
func (c *Client) GetStock(ctx context.Context, productID string) (int, error) {
	n, err := c.rdb.Get(ctx, stockKey(productID)).Int()
	if err == redis.Nil {
		return 0, ErrKeyNotLoaded
	}
	return n, err
}
