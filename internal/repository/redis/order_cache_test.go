package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func setupTestRedis(t *testing.T) (*OrderCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewOrderCache(client, time.Minute), mr
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Order{
		ID:   "o-1",
		User: domain.OrderUser{ID: "u-1", Email: "ana@example.com"},
		Items: []domain.OrderItem{
			{
				Product:  domain.ProductSnapshot{ID: "p-1", Name: "Mug", Price: decimal.RequireFromString("12.5")},
				Quantity: 2,
				Price:    decimal.RequireFromString("12.5"),
				Subtotal: decimal.RequireFromString("25"),
			},
		},
		TotalAmount: decimal.RequireFromString("25"),
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestOrderCache_SetThenGet(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	order := sampleOrder()

	require.NoError(t, cache.Set(ctx, "u-1", order))
	assert.True(t, mr.Exists("storefront:order:u-1:o-1"))

	got, err := cache.Get(ctx, "u-1", "o-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, order.Status, got.Status)
	assert.True(t, order.TotalAmount.Equal(got.TotalAmount))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Mug", got.Items[0].Product.Name)
	assert.True(t, order.CreatedAt.Equal(got.CreatedAt))
}

func TestOrderCache_GetMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	_, err := cache.Get(context.Background(), "u-1", "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderCache_ScopedByUser(t *testing.T) {
	cache, _ := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "u-1", sampleOrder()))

	_, err := cache.Get(ctx, "u-2", "o-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderCache_Expires(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "u-1", sampleOrder()))

	assert.Equal(t, time.Minute, mr.TTL("storefront:order:u-1:o-1"))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(ctx, "u-1", "o-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderCache_Invalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, "u-1", sampleOrder()))

	require.NoError(t, cache.Invalidate(ctx, "u-1", "o-1"))
	assert.False(t, mr.Exists("storefront:order:u-1:o-1"))

	// Invalidating an absent key is not an error.
	require.NoError(t, cache.Invalidate(ctx, "u-1", "o-1"))
}

func TestOrderCache_CorruptEntry(t *testing.T) {
	cache, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("storefront:order:u-1:o-1", "{not json"))

	_, err := cache.Get(context.Background(), "u-1", "o-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrderCache_RedisDown(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Close()

	_, err := cache.Get(context.Background(), "u-1", "o-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Error(t, cache.Ping(context.Background()))
}
