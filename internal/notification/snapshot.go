package notification

import (
	"sync"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// Feed names one polled data source.
type Feed string

const (
	FeedFills       Feed = "fills"
	FeedOrders      Feed = "orders"
	FeedPortfolio   Feed = "portfolio"
	FeedPriceAlerts Feed = "price_alerts"
	FeedRateLimit   Feed = "rate_limit"
)

// Feeds lists every feed a session polls.
var Feeds = []Feed{FeedFills, FeedOrders, FeedPortfolio, FeedPriceAlerts, FeedRateLimit}

// SnapshotStore keeps the last observed value of each (user, feed) pair.
// Entries live only in memory.
type SnapshotStore struct {
	mu         sync.Mutex
	watermarks map[string]time.Time
	orders     map[string][]domain.Order
	pnl        map[string]float64
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		watermarks: make(map[string]time.Time),
		orders:     make(map[string][]domain.Order),
		pnl:        make(map[string]float64),
	}
}

// FillWatermark returns the newest fill time seen for user.
func (s *SnapshotStore) FillWatermark(user string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.watermarks[user]
	return t, ok
}

// AdvanceFillWatermark moves the watermark to t unless it is already later.
// It returns the stored value.
func (s *SnapshotStore) AdvanceFillWatermark(user string, t time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.watermarks[user]
	if !ok || t.After(cur) {
		s.watermarks[user] = t
		return t
	}
	return cur
}

// Orders returns a copy of the last open-order list for user.
func (s *SnapshotStore) Orders(user string) ([]domain.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.orders[user]
	if !ok {
		return nil, false
	}
	out := make([]domain.Order, len(prev))
	copy(out, prev)
	return out, true
}

// SetOrders replaces the open-order snapshot for user.
func (s *SnapshotStore) SetOrders(user string, orders []domain.Order) {
	cp := make([]domain.Order, len(orders))
	copy(cp, orders)
	s.mu.Lock()
	s.orders[user] = cp
	s.mu.Unlock()
}

// DailyPnL returns the last daily PnL scalar seen for user.
func (s *SnapshotStore) DailyPnL(user string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.pnl[user]
	return v, ok
}

// SetDailyPnL stores the daily PnL scalar for user.
func (s *SnapshotStore) SetDailyPnL(user string, v float64) {
	s.mu.Lock()
	s.pnl[user] = v
	s.mu.Unlock()
}
