package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// Fetcher reads a user's current state from the exchange.
type Fetcher interface {
	UserFills(ctx context.Context, user string) ([]domain.Fill, error)
	OpenOrders(ctx context.Context, user string) ([]domain.Order, error)
	Portfolio(ctx context.Context, user string) ([]domain.PortfolioWindow, error)
	MidPrices(ctx context.Context) (map[string]float64, error)
	RateLimit(ctx context.Context, user string) (domain.RateLimitUsage, error)
}

// period returns the polling interval of feed for base interval t.
func period(feed Feed, t time.Duration) time.Duration {
	switch feed {
	case FeedPortfolio:
		return 2 * t
	case FeedRateLimit:
		return 10 * t
	default:
		return t
	}
}

func (m *Monitor) pollFunc(feed Feed) func(context.Context, *session) {
	switch feed {
	case FeedFills:
		return m.pollFills
	case FeedOrders:
		return m.pollOrders
	case FeedPortfolio:
		return m.pollPortfolio
	case FeedPriceAlerts:
		return m.pollPriceAlerts
	default:
		return m.pollRateLimit
	}
}

// runFeed polls one feed every period until ctx is cancelled. The first poll
// happens one period after start.
func (m *Monitor) runFeed(ctx context.Context, s *session, feed Feed) {
	poll := m.pollFunc(feed)
	ticker := time.NewTicker(period(feed, s.interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll(ctx, s)
		}
	}
}

func (m *Monitor) fetchFailed(ctx context.Context, s *session, feed Feed, err error) {
	if ctx.Err() != nil {
		return
	}
	m.logger.Warn("poll failed",
		slog.String("user", s.user),
		slog.String("feed", string(feed)),
		slog.String("error", err.Error()),
	)
}

func (m *Monitor) pollFills(ctx context.Context, s *session) {
	if !m.settings.Get().EnableOrderNotifications {
		return
	}
	fills, err := m.fetcher.UserFills(ctx, s.user)
	if err != nil {
		m.fetchFailed(ctx, s, FeedFills, err)
		return
	}
	if ctx.Err() != nil || len(fills) == 0 {
		return
	}

	latest := fills[0].Time
	for _, f := range fills[1:] {
		if f.Time.After(latest) {
			latest = f.Time
		}
	}

	watermark, seen := m.snapshots.FillWatermark(s.user)
	if !seen {
		m.snapshots.AdvanceFillWatermark(s.user, latest)
		return
	}
	for _, f := range fills {
		if f.Time.After(watermark) {
			m.emit(ctx, FillNotification(s.user, f))
		}
	}
	m.snapshots.AdvanceFillWatermark(s.user, latest)
}

func (m *Monitor) pollOrders(ctx context.Context, s *session) {
	if !m.settings.Get().EnableOrderNotifications {
		return
	}
	orders, err := m.fetcher.OpenOrders(ctx, s.user)
	if err != nil {
		m.fetchFailed(ctx, s, FeedOrders, err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	prev, seen := m.snapshots.Orders(s.user)
	if seen {
		open := make(map[int64]struct{}, len(orders))
		for _, o := range orders {
			open[o.OrderID] = struct{}{}
		}
		for _, o := range prev {
			if _, ok := open[o.OrderID]; !ok {
				m.emit(ctx, CancelNotification(s.user, o))
			}
		}
	}
	m.snapshots.SetOrders(s.user, orders)
}

func (m *Monitor) pollPortfolio(ctx context.Context, s *session) {
	settings := m.settings.Get()
	if !settings.EnablePnLNotifications {
		return
	}
	windows, err := m.fetcher.Portfolio(ctx, s.user)
	if err != nil {
		m.fetchFailed(ctx, s, FeedPortfolio, err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	day, ok := domain.FindWindow(windows, domain.PortfolioDay)
	if !ok {
		return
	}
	latest, ok := day.LatestPnL()
	if !ok {
		return
	}

	if prev, seen := m.snapshots.DailyPnL(s.user); seen {
		if n, fire := PnLNotification(s.user, PnLDelta(prev, latest), settings.PnLThreshold); fire {
			m.emit(ctx, n)
		}
	}
	m.snapshots.SetDailyPnL(s.user, latest)
}

func (m *Monitor) pollPriceAlerts(ctx context.Context, s *session) {
	if !m.settings.Get().EnablePriceAlerts {
		return
	}
	mids, err := m.fetcher.MidPrices(ctx)
	if err != nil {
		m.fetchFailed(ctx, s, FeedPriceAlerts, err)
		return
	}
	if ctx.Err() != nil {
		return
	}

	for _, a := range s.fire(mids) {
		price := mids[a.Coin]
		n, ok := m.emit(ctx, PriceAlertNotification(s.user, a, price))
		if !ok {
			continue
		}
		a.Enabled = false
		m.bus.AlertConsumed.Publish(AlertConsumed{
			User:           s.user,
			Alert:          a,
			Price:          price,
			NotificationID: n.ID,
		})
	}
}

func (m *Monitor) pollRateLimit(ctx context.Context, s *session) {
	if !m.settings.Get().EnableSystemNotifications {
		return
	}
	usage, err := m.fetcher.RateLimit(ctx, s.user)
	if err != nil {
		m.fetchFailed(ctx, s, FeedRateLimit, err)
		return
	}
	if ctx.Err() != nil {
		return
	}
	if n, fire := RateLimitNotification(s.user, usage); fire {
		m.emit(ctx, n)
	}
}
