package service

import (
	"context"
	"time"

	"profit-guard/internal/models"
	"profit-guard/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateStore reads the most recently fetched exchange rate
type RateStore interface {
	LatestExchangeRate(ctx context.Context, pair string) (*models.ExchangeRate, error)
}

// RateCache caches a rate with a TTL (redis-backed in production)
type RateCache interface {
	GetCachedRate(ctx context.Context, pair string) (decimal.Decimal, bool, error)
	SetCachedRate(ctx context.Context, pair string, rate decimal.Decimal, ttl time.Duration) error
}

// RateProvider serves the latest USD->JPY rate: cache first, store on a
// miss, fixed fallback when neither has a value. It never fails a
// profit check over an unavailable rate.
type RateProvider struct {
	store    RateStore
	cache    RateCache
	fallback decimal.Decimal
	ttl      time.Duration
	logger   *zap.Logger
}

// NewRateProvider creates a rate provider. cache may be nil.
func NewRateProvider(store RateStore, cache RateCache, fallback float64, ttl time.Duration) *RateProvider {
	return &RateProvider{
		store:    store,
		cache:    cache,
		fallback: decimal.NewFromFloat(fallback),
		ttl:      ttl,
		logger:   util.GetLogger(),
	}
}

// Latest returns the current rate. Cache errors degrade to the store;
// store errors degrade to the fallback.
func (p *RateProvider) Latest(ctx context.Context) decimal.Decimal {
	if p.cache != nil {
		rate, ok, err := p.cache.GetCachedRate(ctx, models.PairUSDJPY)
		if err != nil {
			p.logger.Warn("Rate cache read failed, falling back to store", zap.Error(err))
		} else if ok {
			return rate
		}
	}

	row, err := p.store.LatestExchangeRate(ctx, models.PairUSDJPY)
	if err != nil {
		p.logger.Warn("No stored exchange rate, using fallback",
			zap.String("fallback", p.fallback.String()),
			zap.Error(err))
		return p.fallback
	}

	if p.cache != nil {
		if err := p.cache.SetCachedRate(ctx, models.PairUSDJPY, row.Rate, p.ttl); err != nil {
			p.logger.Warn("Failed to cache exchange rate", zap.Error(err))
		}
	}

	return row.Rate
}
