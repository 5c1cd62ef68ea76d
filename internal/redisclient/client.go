package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetCachedRate retrieves a cached exchange rate for a pair.
// The second return value is false on a cache miss.
func (c *Client) GetCachedRate(ctx context.Context, pair string) (decimal.Decimal, bool, error) {
	val, err := c.rdb.Get(ctx, fmt.Sprintf("rate:%s", pair)).Result()
	if err == redis.Nil {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	rate, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt cached rate %q: %w", val, err)
	}
	return rate, true, nil
}

// SetCachedRate stores an exchange rate with a TTL
func (c *Client) SetCachedRate(ctx context.Context, pair string, rate decimal.Decimal, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("rate:%s", pair), rate.String(), ttl).Err()
}

// MarkEventSeen records a webhook event id for duplicate-delivery
// suppression. Returns true if this is the first sighting.
func (c *Client) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("event:%s", eventID), "1", ttl).Result()
}
