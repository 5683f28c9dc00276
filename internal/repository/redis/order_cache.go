package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const keyPrefix = "storefront:order:"

// OrderCache implements repository.OrderCache using Redis.
type OrderCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOrderCache creates a Redis-backed order cache. Entries expire after ttl.
func NewOrderCache(client *redis.Client, ttl time.Duration) *OrderCache {
	return &OrderCache{
		client: client,
		ttl:    ttl,
	}
}

func key(userID, orderID string) string {
	return keyPrefix + userID + ":" + orderID
}

// Get retrieves a cached order.
func (c *OrderCache) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	data, err := c.client.Get(ctx, key(userID, orderID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cached order", orderID)
		}
		return nil, fmt.Errorf("redis get order: %w", err)
	}

	var order domain.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}

	return &order, nil
}

// Set stores an order with the configured TTL.
func (c *OrderCache) Set(ctx context.Context, userID string, order *domain.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	if err := c.client.Set(ctx, key(userID, order.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set order: %w", err)
	}

	return nil
}

// Invalidate removes a cached order.
func (c *OrderCache) Invalidate(ctx context.Context, userID, orderID string) error {
	if err := c.client.Del(ctx, key(userID, orderID)).Err(); err != nil {
		return fmt.Errorf("redis del order: %w", err)
	}

	return nil
}

// Ping checks the Redis connection.
func (c *OrderCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
