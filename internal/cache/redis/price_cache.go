package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// PriceCache implements domain.PriceCache using Redis hashes.
// Each coin's mid is stored at key "mid:{coin}" with fields "price" and "ts"
// (Unix nanosecond timestamp). Entries expire after ttl so a stalled feed
// does not serve stale prices forever.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache backed by the given Client. A zero ttl
// keeps entries until overwritten.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.Underlying(), ttl: ttl}
}

func priceKey(coin string) string {
	return "mid:" + coin
}

func priceFields(price float64, ts time.Time) map[string]any {
	return map[string]any{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
}

// SetPrice stores the latest mid and timestamp for a coin.
func (pc *PriceCache) SetPrice(ctx context.Context, coin string, price float64, ts time.Time) error {
	key := priceKey(coin)
	pipe := pc.rdb.TxPipeline()
	pipe.HSet(ctx, key, priceFields(price, ts))
	if pc.ttl > 0 {
		pipe.Expire(ctx, key, pc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set price %s: %w", coin, err)
	}
	return nil
}

// SetPrices stores a full snapshot of mids in one round trip.
func (pc *PriceCache) SetPrices(ctx context.Context, prices map[string]float64, ts time.Time) error {
	if len(prices) == 0 {
		return nil
	}
	pipe := pc.rdb.Pipeline()
	for coin, price := range prices {
		key := priceKey(coin)
		pipe.HSet(ctx, key, priceFields(price, ts))
		if pc.ttl > 0 {
			pipe.Expire(ctx, key, pc.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set prices: %w", err)
	}
	return nil
}

// GetPrice retrieves the latest mid and timestamp for a coin.
// It returns domain.ErrNotFound when the key does not exist.
func (pc *PriceCache) GetPrice(ctx context.Context, coin string) (float64, time.Time, error) {
	vals, err := pc.rdb.HGetAll(ctx, priceKey(coin)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", coin, err)
	}
	price, ts, ok, err := parsePrice(vals)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", coin, err)
	}
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return price, ts, nil
}

// GetPrices retrieves the latest mids for several coins using a pipeline.
// Coins without a cached price are omitted from the result.
func (pc *PriceCache) GetPrices(ctx context.Context, coins []string) (map[string]float64, error) {
	if len(coins) == 0 {
		return map[string]float64{}, nil
	}

	pipe := pc.rdb.Pipeline()
	cmds := make(map[string]*redis.MapStringStringCmd, len(coins))
	for _, coin := range coins {
		cmds[coin] = pipe.HGetAll(ctx, priceKey(coin))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: get prices pipeline: %w", err)
	}

	result := make(map[string]float64, len(coins))
	for coin, cmd := range cmds {
		vals, err := cmd.Result()
		if err != nil {
			continue
		}
		if price, _, ok, err := parsePrice(vals); err == nil && ok {
			result[coin] = price
		}
	}
	return result, nil
}

func parsePrice(vals map[string]string) (float64, time.Time, bool, error) {
	priceStr, ok := vals["price"]
	if !ok {
		return 0, time.Time{}, false, nil
	}
	tsStr, ok := vals["ts"]
	if !ok {
		return 0, time.Time{}, false, nil
	}
	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("parse price: %w", err)
	}
	tsNano, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("parse ts: %w", err)
	}
	return price, time.Unix(0, tsNano), true, nil
}

// Compile-time interface check.
var _ domain.PriceCache = (*PriceCache)(nil)
