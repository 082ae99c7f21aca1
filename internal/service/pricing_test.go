package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parts-service/internal/apperr"
	"parts-service/internal/models"
	"parts-service/internal/redisclient"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCache struct{}

func (failingCache) GetPrice(context.Context, int64, int64) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, errors.New("redis down")
}

func (failingCache) SetPrice(context.Context, int64, int64, decimal.Decimal) error {
	return errors.New("redis down")
}

func TestResolveReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	mr := miniredis.RunT(t)
	cache := redisclient.NewClientFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	resolver := NewPricingResolver(cache)
	ctx := context.Background()

	amount, err := resolver.Resolve(ctx, f.store, partFilter, retailTier)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.50")))

	cached, ok, err := cache.GetPrice(ctx, partFilter, retailTier)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.Equal(amount))

	// a later catalog change is hidden until the entry expires
	f.store.PutPrice(models.Price{PartID: partFilter, PriceTierID: retailTier, Amount: decimal.RequireFromString("14.00")})
	amount, err = resolver.Resolve(ctx, f.store, partFilter, retailTier)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.50")))

	mr.FastForward(2 * time.Minute)
	amount, err = resolver.Resolve(ctx, f.store, partFilter, retailTier)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("14.00")))
}

func TestResolveFallsBackWhenCacheFails(t *testing.T) {
	f := newFixture(t)
	resolver := NewPricingResolver(failingCache{})

	amount, err := resolver.Resolve(context.Background(), f.store, partFilter, retailTier)
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.50")))
}

func TestResolveMissingPrice(t *testing.T) {
	f := newFixture(t)
	resolver := NewPricingResolver(nil)

	_, err := resolver.Resolve(context.Background(), f.store, partBrake, retailTier)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestResolveForClientWithoutTier(t *testing.T) {
	f := newFixture(t)
	resolver := NewPricingResolver(nil)

	client, err := f.store.GetClient(context.Background(), clientBare)
	require.NoError(t, err)

	_, err = resolver.ResolveForClient(context.Background(), f.store, client, partFilter)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
