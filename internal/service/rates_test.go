package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"profit-guard/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeRateStore struct {
	row   *models.ExchangeRate
	err   error
	calls int
}

func (f *fakeRateStore) LatestExchangeRate(ctx context.Context, pair string) (*models.ExchangeRate, error) {
	f.calls++
	return f.row, f.err
}

type fakeRateCache struct {
	rate    decimal.Decimal
	hit     bool
	getErr  error
	setPair string
	setRate decimal.Decimal
}

func (f *fakeRateCache) GetCachedRate(ctx context.Context, pair string) (decimal.Decimal, bool, error) {
	return f.rate, f.hit, f.getErr
}

func (f *fakeRateCache) SetCachedRate(ctx context.Context, pair string, rate decimal.Decimal, ttl time.Duration) error {
	f.setPair = pair
	f.setRate = rate
	return nil
}

func TestLatestCacheHitSkipsStore(t *testing.T) {
	store := &fakeRateStore{}
	cache := &fakeRateCache{rate: decimal.NewFromFloat(151.2), hit: true}
	p := NewRateProvider(store, cache, 150, 10*time.Minute)

	rate := p.Latest(context.Background())
	assert.Equal(t, "151.2", rate.String())
	assert.Zero(t, store.calls)
}

func TestLatestCacheMissReadsStoreAndBackfills(t *testing.T) {
	store := &fakeRateStore{row: &models.ExchangeRate{Pair: models.PairUSDJPY, Rate: decimal.NewFromFloat(149.5)}}
	cache := &fakeRateCache{}
	p := NewRateProvider(store, cache, 150, 10*time.Minute)

	rate := p.Latest(context.Background())
	assert.Equal(t, "149.5", rate.String())
	assert.Equal(t, models.PairUSDJPY, cache.setPair)
	assert.Equal(t, "149.5", cache.setRate.String())
}

func TestLatestCacheErrorDegradesToStore(t *testing.T) {
	store := &fakeRateStore{row: &models.ExchangeRate{Pair: models.PairUSDJPY, Rate: decimal.NewFromInt(148)}}
	cache := &fakeRateCache{getErr: errors.New("redis down")}
	p := NewRateProvider(store, cache, 150, 10*time.Minute)

	assert.Equal(t, "148", p.Latest(context.Background()).String())
}

func TestLatestStoreErrorUsesFallback(t *testing.T) {
	store := &fakeRateStore{err: errors.New("no rows")}
	p := NewRateProvider(store, nil, 150, 10*time.Minute)

	assert.Equal(t, "150", p.Latest(context.Background()).String())
}
