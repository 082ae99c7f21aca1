package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewClientFromRedis(rdb, time.Minute), mr
}

func TestPriceRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, ok, err := c.GetPrice(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetPrice(ctx, 1, 2, decimal.RequireFromString("99.95")))

	amount, ok, err := c.GetPrice(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, amount.Equal(decimal.RequireFromString("99.95")))
}

func TestPriceExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetPrice(ctx, 3, 1, decimal.NewFromInt(10)))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.GetPrice(ctx, 3, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidatePrice(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetPrice(ctx, 4, 1, decimal.NewFromInt(10)))
	require.NoError(t, c.InvalidatePrice(ctx, 4, 1))
	assert.False(t, mr.Exists("price:4:1"))
}

func TestCorruptCachedPrice(t *testing.T) {
	c, mr := newTestClient(t)
	require.NoError(t, mr.Set("price:5:1", "not-a-number"))

	_, ok, err := c.GetPrice(context.Background(), 5, 1)
	assert.Error(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("price:5:1"))
}
