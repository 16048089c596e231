package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
	"github.com/alanyoungcy/hlwatch/internal/metrics"
	"github.com/alanyoungcy/hlwatch/internal/notification"
)

// CachingFetcher decorates a notification.Fetcher with request metrics
// and writes every mid-price snapshot through to the price cache.
type CachingFetcher struct {
	next   notification.Fetcher
	prices domain.PriceCache
	logger *slog.Logger
	now    func() time.Time
}

// NewCachingFetcher wraps next. prices may be nil.
func NewCachingFetcher(next notification.Fetcher, prices domain.PriceCache, logger *slog.Logger) *CachingFetcher {
	return &CachingFetcher{
		next:   next,
		prices: prices,
		logger: logger.With(slog.String("component", "fetcher")),
		now:    time.Now,
	}
}

func (f *CachingFetcher) observe(feed notification.Feed, start time.Time, err error) {
	metrics.FetchDuration.WithLabelValues(string(feed)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FetchFailures.WithLabelValues(string(feed)).Inc()
	}
}

func (f *CachingFetcher) UserFills(ctx context.Context, user string) ([]domain.Fill, error) {
	start := time.Now()
	fills, err := f.next.UserFills(ctx, user)
	f.observe(notification.FeedFills, start, err)
	return fills, err
}

func (f *CachingFetcher) OpenOrders(ctx context.Context, user string) ([]domain.Order, error) {
	start := time.Now()
	orders, err := f.next.OpenOrders(ctx, user)
	f.observe(notification.FeedOrders, start, err)
	return orders, err
}

func (f *CachingFetcher) Portfolio(ctx context.Context, user string) ([]domain.PortfolioWindow, error) {
	start := time.Now()
	windows, err := f.next.Portfolio(ctx, user)
	f.observe(notification.FeedPortfolio, start, err)
	return windows, err
}

// MidPrices fetches all mids and caches them. A cache failure is logged and
// does not fail the fetch.
func (f *CachingFetcher) MidPrices(ctx context.Context) (map[string]float64, error) {
	start := time.Now()
	mids, err := f.next.MidPrices(ctx)
	f.observe(notification.FeedPriceAlerts, start, err)
	if err != nil || f.prices == nil || len(mids) == 0 {
		return mids, err
	}

	if cacheErr := f.prices.SetPrices(ctx, mids, f.now()); cacheErr != nil {
		f.logger.WarnContext(ctx, "cache mid prices failed",
			slog.Int("coins", len(mids)),
			slog.String("error", cacheErr.Error()),
		)
	}
	return mids, nil
}

func (f *CachingFetcher) RateLimit(ctx context.Context, user string) (domain.RateLimitUsage, error) {
	start := time.Now()
	usage, err := f.next.RateLimit(ctx, user)
	f.observe(notification.FeedRateLimit, start, err)
	return usage, err
}

// Compile-time interface check.
var _ notification.Fetcher = (*CachingFetcher)(nil)
