package service

import (
	"context"

	"parts-service/internal/apperr"
	"parts-service/internal/models"
	"parts-service/internal/store"
	"parts-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceCache is an optional read-through cache for resolved prices.
// *redisclient.Client satisfies it.
type PriceCache interface {
	GetPrice(ctx context.Context, partID, priceTierID int64) (decimal.Decimal, bool, error)
	SetPrice(ctx context.Context, partID, priceTierID int64, amount decimal.Decimal) error
}

// PricingResolver looks up the price of a part under a price tier
type PricingResolver struct {
	cache  PriceCache
	logger *zap.Logger
}

// NewPricingResolver creates a resolver. cache may be nil.
func NewPricingResolver(cache PriceCache) *PricingResolver {
	return &PricingResolver{
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// Resolve returns the price of partID in priceTierID. Cache failures are
// logged and fall through to the store.
func (r *PricingResolver) Resolve(ctx context.Context, q store.Queries, partID, priceTierID int64) (decimal.Decimal, error) {
	ctx, span := util.StartSpan(ctx, "PricingResolver.Resolve")
	defer span.End()

	if r.cache != nil {
		amount, ok, err := r.cache.GetPrice(ctx, partID, priceTierID)
		switch {
		case err != nil:
			util.PriceCacheLookups.WithLabelValues("error").Inc()
			r.logger.Warn("Price cache lookup failed", zap.Int64("part_id", partID), zap.Error(err))
		case ok:
			util.PriceCacheLookups.WithLabelValues("hit").Inc()
			return amount, nil
		default:
			util.PriceCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	price, err := q.GetPrice(ctx, partID, priceTierID)
	if err != nil {
		return decimal.Zero, err
	}

	if r.cache != nil {
		if err := r.cache.SetPrice(ctx, partID, priceTierID, price.Amount); err != nil {
			r.logger.Warn("Price cache store failed", zap.Int64("part_id", partID), zap.Error(err))
		}
	}
	return price.Amount, nil
}

// ResolveForClient prices a part under the client's tier
func (r *PricingResolver) ResolveForClient(ctx context.Context, q store.Queries, client *models.Client, partID int64) (decimal.Decimal, error) {
	if client.PriceTierID == nil {
		return decimal.Zero, apperr.Validation("client %d has no price tier; unit price is required", client.ID)
	}
	return r.Resolve(ctx, q, partID, *client.PriceTierID)
}
