package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_store/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client), mr
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:         42,
		CustomerID: 7,
		Status:     domain.PaymentStatusPending,
		TotalPrice: domain.MustMoney("39.98"),
		Items: []domain.OrderItem{
			{ProductID: 1, ProductName: "Widget", UnitPrice: domain.MustMoney("19.99"), Quantity: 2},
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSetThenGet(t *testing.T) {
	c, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testOrder()))

	got, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.CustomerID(7), got.CustomerID)
	assert.Equal(t, "39.98", got.TotalPrice.String())
	require.Len(t, got.Items, 1)
	assert.Equal(t, "19.99", got.Items[0].UnitPrice.String())
	assert.True(t, got.CreatedAt.Equal(testOrder().CreatedAt))
}

func TestGet_Miss(t *testing.T) {
	c, _ := setupTestRedis(t)

	_, err := c.Get(context.Background(), 1)

	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestSet_TTLHasJitterBounds(t *testing.T) {
	c, mr := setupTestRedis(t)

	require.NoError(t, c.Set(context.Background(), testOrder()))

	ttl := mr.TTL(cacheKey(42))
	assert.GreaterOrEqual(t, ttl, 15*time.Minute)
	assert.Less(t, ttl, 20*time.Minute)
}

func TestDelete(t *testing.T) {
	c, mr := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, testOrder()))

	require.NoError(t, c.Delete(ctx, 42))

	assert.False(t, mr.Exists(cacheKey(42)))
	require.NoError(t, c.Delete(ctx, 42))
}

func TestGet_CorruptEntry(t *testing.T) {
	c, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey(5), "{not json"))

	_, err := c.Get(context.Background(), 5)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestGet_RedisDown(t *testing.T) {
	c, mr := setupTestRedis(t)
	mr.Close()

	_, err := c.Get(context.Background(), 1)

	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}
