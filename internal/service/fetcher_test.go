package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachingFetcherWritesMids(t *testing.T) {
	cache := &fakePriceCache{}
	f := NewCachingFetcher(&midsFetcher{mids: map[string]float64{"BTC": 65000, "ETH": 3000}}, cache, discardLogger())

	mids, err := f.MidPrices(context.Background())
	require.NoError(t, err)
	assert.Len(t, mids, 2)

	p, _, err := cache.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Equal(t, 3000.0, p)
}

func TestCachingFetcherIgnoresCacheFailure(t *testing.T) {
	cache := &fakePriceCache{err: errors.New("redis down")}
	f := NewCachingFetcher(&midsFetcher{mids: map[string]float64{"BTC": 1}}, cache, discardLogger())

	mids, err := f.MidPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, mids["BTC"])
}

func TestCachingFetcherPassesErrors(t *testing.T) {
	cache := &fakePriceCache{}
	f := NewCachingFetcher(&midsFetcher{err: errors.New("timeout")}, cache, discardLogger())

	_, err := f.MidPrices(context.Background())
	assert.ErrorContains(t, err, "timeout")
	assert.Empty(t, cache.prices)
}

func TestCachingFetcherNilCache(t *testing.T) {
	f := NewCachingFetcher(&midsFetcher{mids: map[string]float64{"SOL": 150}}, nil, discardLogger())
	mids, err := f.MidPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150.0, mids["SOL"])
}
