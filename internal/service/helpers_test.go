package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hlwatch/internal/domain"
	"github.com/alanyoungcy/hlwatch/internal/notification"
)

const testUser = "0x1234567890abcdef1234567890abcdef12345678"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// midsFetcher only serves mid prices; every other feed is empty.
type midsFetcher struct {
	mu   sync.Mutex
	mids map[string]float64
	err  error
}

func (f *midsFetcher) UserFills(context.Context, string) ([]domain.Fill, error) { return nil, nil }

func (f *midsFetcher) OpenOrders(context.Context, string) ([]domain.Order, error) { return nil, nil }

func (f *midsFetcher) Portfolio(context.Context, string) ([]domain.PortfolioWindow, error) {
	return nil, nil
}

func (f *midsFetcher) MidPrices(context.Context) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mids, f.err
}

func (f *midsFetcher) RateLimit(context.Context, string) (domain.RateLimitUsage, error) {
	return domain.RateLimitUsage{}, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// triggerAlert starts a session whose price alert fires on the first price
// poll and waits for the resulting notification.
func triggerAlert(t *testing.T, engine *notification.Service) domain.Notification {
	t.Helper()
	_, err := engine.StartMonitoring(domain.MonitorConfig{
		UserAddress:     testUser,
		PollingInterval: 5 * time.Millisecond,
		PriceAlerts: []domain.PriceAlert{
			{ID: "a1", Coin: "BTC", TargetPrice: 100, Condition: domain.AlertAbove, Enabled: true},
		},
	})
	require.NoError(t, err)
	t.Cleanup(engine.Shutdown)

	require.Eventually(t, func() bool {
		return len(engine.Notifications(false)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	engine.StopMonitoring(testUser)
	return engine.Notifications(false)[0]
}

type published struct {
	channel string
	payload []byte
}

type fakeSignals struct {
	mu   sync.Mutex
	msgs []published
}

func (f *fakeSignals) Publish(_ context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{channel: channel, payload: payload})
	return nil
}

func (f *fakeSignals) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (f *fakeSignals) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.channel
	}
	return out
}

type fakeStreams struct {
	mu      sync.Mutex
	entries map[string]int
}

func (f *fakeStreams) StreamAppend(_ context.Context, stream string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.entries == nil {
		f.entries = make(map[string]int)
	}
	f.entries[stream]++
	return nil
}

func (f *fakeStreams) count(stream string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[stream]
}

type fakeArchive struct {
	mu           sync.Mutex
	inserted     []domain.Notification
	read         []string
	allRead      int
	deleteCutoff time.Time
	deleteErr    error
}

func (f *fakeArchive) Insert(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, n)
	return nil
}

func (f *fakeArchive) MarkRead(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.read = append(f.read, id)
	return nil
}

func (f *fakeArchive) MarkAllRead(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allRead++
	return int64(len(f.inserted)), nil
}

func (f *fakeArchive) List(_ context.Context, _ string, opts domain.ListOpts) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.inserted {
		if opts.Until == nil || !n.Timestamp.After(*opts.Until) {
			out = append(out, n)
		}
	}
	out = out[min(opts.Offset, len(out)):]
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeArchive) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCutoff = cutoff
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	kept := f.inserted[:0]
	for _, n := range f.inserted {
		if !n.Timestamp.Before(cutoff) {
			kept = append(kept, n)
		}
	}
	deleted := len(f.inserted) - len(kept)
	f.inserted = kept
	return int64(deleted), nil
}

func (f *fakeArchive) snapshot() (inserted int, read []string, allRead int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inserted), append([]string(nil), f.read...), f.allRead
}

type fakeSettingsStore struct {
	mu    sync.Mutex
	saved []domain.NotificationSettings
}

func (f *fakeSettingsStore) Load(context.Context) (domain.NotificationSettings, error) {
	return domain.NotificationSettings{}, domain.ErrNotFound
}

func (f *fakeSettingsStore) Save(_ context.Context, s domain.NotificationSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeSettingsStore) last() (domain.NotificationSettings, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return domain.NotificationSettings{}, false
	}
	return f.saved[len(f.saved)-1], true
}

type fakeForwarder struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (f *fakeForwarder) Notify(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, n)
	return nil
}

func (f *fakeForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notes)
}

type fakePriceCache struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
}

func (f *fakePriceCache) SetPrice(_ context.Context, coin string, price float64, _ time.Time) error {
	return f.SetPrices(context.Background(), map[string]float64{coin: price}, time.Time{})
}

func (f *fakePriceCache) SetPrices(_ context.Context, prices map[string]float64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.prices == nil {
		f.prices = make(map[string]float64)
	}
	for k, v := range prices {
		f.prices[k] = v
	}
	return nil
}

func (f *fakePriceCache) GetPrice(_ context.Context, coin string) (float64, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[coin]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return p, time.Time{}, nil
}
