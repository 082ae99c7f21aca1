package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// Client caches resolved part prices in Redis
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
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

	return NewClientFromRedis(rdb, ttl), nil
}

// NewClientFromRedis wraps an existing go-redis client
func NewClientFromRedis(rdb *redis.Client, ttl time.Duration) *Client {
	return &Client{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping reports whether Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func priceKey(partID, priceTierID int64) string {
	return fmt.Sprintf("price:%d:%d", partID, priceTierID)
}

// GetPrice returns a cached price. ok is false on a cache miss.
func (c *Client) GetPrice(ctx context.Context, partID, priceTierID int64) (amount decimal.Decimal, ok bool, err error) {
	raw, err := c.rdb.Get(ctx, priceKey(partID, priceTierID)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("price cache get failed: %w", err)
	}

	amount, err = decimal.NewFromString(raw)
	if err != nil {
		// drop the entry so the next lookup repopulates it
		if delErr := c.InvalidatePrice(ctx, partID, priceTierID); delErr != nil {
			return decimal.Zero, false, fmt.Errorf("corrupt cached price %q: %w (invalidate: %v)", raw, err, delErr)
		}
		return decimal.Zero, false, fmt.Errorf("corrupt cached price %q: %w", raw, err)
	}
	return amount, true, nil
}

// SetPrice stores a price with the configured TTL
func (c *Client) SetPrice(ctx context.Context, partID, priceTierID int64, amount decimal.Decimal) error {
	return c.rdb.Set(ctx, priceKey(partID, priceTierID), amount.String(), c.ttl).Err()
}

// InvalidatePrice drops a cached price
func (c *Client) InvalidatePrice(ctx context.Context, partID, priceTierID int64) error {
	return c.rdb.Del(ctx, priceKey(partID, priceTierID)).Err()
}
