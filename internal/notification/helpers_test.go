package notification

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

const testUser = "0x1234567890abcdef1234567890abcdef12345678"

type fakeFetcher struct {
	mu        sync.Mutex
	fills     []domain.Fill
	orders    []domain.Order
	portfolio []domain.PortfolioWindow
	mids      map[string]float64
	usage     domain.RateLimitUsage
	err       error
	calls     map[Feed]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{calls: make(map[Feed]int)}
}

func (f *fakeFetcher) record(feed Feed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[feed]++
	return f.err
}

func (f *fakeFetcher) callCount(feed Feed) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[feed]
}

func (f *fakeFetcher) UserFills(_ context.Context, _ string) ([]domain.Fill, error) {
	if err := f.record(FeedFills); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Fill(nil), f.fills...), nil
}

func (f *fakeFetcher) OpenOrders(_ context.Context, _ string) ([]domain.Order, error) {
	if err := f.record(FeedOrders); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Order(nil), f.orders...), nil
}

func (f *fakeFetcher) Portfolio(_ context.Context, _ string) ([]domain.PortfolioWindow, error) {
	if err := f.record(FeedPortfolio); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.portfolio, nil
}

func (f *fakeFetcher) MidPrices(_ context.Context) (map[string]float64, error) {
	if err := f.record(FeedPriceAlerts); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mids, nil
}

func (f *fakeFetcher) RateLimit(_ context.Context, _ string) (domain.RateLimitUsage, error) {
	if err := f.record(FeedRateLimit); err != nil {
		return domain.RateLimitUsage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage, nil
}

func (f *fakeFetcher) setFills(fills ...domain.Fill) {
	f.mu.Lock()
	f.fills = fills
	f.mu.Unlock()
}

func (f *fakeFetcher) setOrders(orders ...domain.Order) {
	f.mu.Lock()
	f.orders = orders
	f.mu.Unlock()
}

func (f *fakeFetcher) setDailyPnL(v float64) {
	f.mu.Lock()
	f.portfolio = []domain.PortfolioWindow{{
		Period:     domain.PortfolioDay,
		PnLHistory: []domain.HistoryPoint{{Time: time.UnixMilli(1), Value: v}},
	}}
	f.mu.Unlock()
}

func (f *fakeFetcher) setMids(m map[string]float64) {
	f.mu.Lock()
	f.mids = m
	f.mu.Unlock()
}

var errUpstream = errors.New("upstream down")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(f Fetcher, opts ...Option) *Service {
	return NewService(f, discardLogger(), opts...)
}

func testSession(alerts ...domain.PriceAlert) *session {
	return &session{
		user:     testUser,
		interval: time.Second,
		alerts:   alerts,
		feeds:    make(map[Feed]int),
	}
}

func fillAt(ms int64) domain.Fill {
	return domain.Fill{Time: time.UnixMilli(ms), Coin: "BTC", Price: 65000, Size: 0.1, Side: domain.OrderSideBuy}
}
