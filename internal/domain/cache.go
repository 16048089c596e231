package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest mid prices.
type PriceCache interface {
	SetPrice(ctx context.Context, coin string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, coin string) (float64, time.Time, error)
	SetPrices(ctx context.Context, prices map[string]float64, ts time.Time) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides cross-process pub/sub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// StreamMessage is one entry of a replay stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}
