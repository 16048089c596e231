package notification

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

type emitFunc func(ctx context.Context, draft domain.Notification) (domain.Notification, bool)

// session is one user's running set of feed pollers.
type session struct {
	user     string
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu     sync.Mutex
	alerts []domain.PriceAlert
	feeds  map[Feed]int
}

// fire disables every armed alert whose condition is met by mids and returns
// them as they were before disarming.
func (s *session) fire(mids map[string]float64) []domain.PriceAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fired []domain.PriceAlert
	for i := range s.alerts {
		a := &s.alerts[i]
		if !a.Enabled {
			continue
		}
		price, ok := mids[a.Coin]
		if !ok || !a.Triggered(price) {
			continue
		}
		fired = append(fired, *a)
		a.Enabled = false
	}
	return fired
}

func (s *session) priceAlerts() []domain.PriceAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.alerts)
}

func (s *session) track(feed Feed, delta int) {
	s.mu.Lock()
	s.feeds[feed] += delta
	if s.feeds[feed] <= 0 {
		delete(s.feeds, feed)
	}
	s.mu.Unlock()
}

func (s *session) activeFeeds() []Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Feed
	for _, f := range Feeds {
		for range s.feeds[f] {
			out = append(out, f)
		}
	}
	return out
}

// Monitor owns the monitoring sessions, one per user address.
type Monitor struct {
	fetcher   Fetcher
	snapshots *SnapshotStore
	settings  *SettingsRegistry
	bus       *Bus
	emit      emitFunc
	logger    *slog.Logger

	lifecycle sync.Mutex // serialises Start/Stop
	mu        sync.Mutex
	sessions  map[string]*session
	tasks     atomic.Int64
}

func newMonitor(fetcher Fetcher, snapshots *SnapshotStore, settings *SettingsRegistry, bus *Bus, emit emitFunc, logger *slog.Logger) *Monitor {
	return &Monitor{
		fetcher:   fetcher,
		snapshots: snapshots,
		settings:  settings,
		bus:       bus,
		emit:      emit,
		logger:    logger.With(slog.String("component", "monitor")),
		sessions:  make(map[string]*session),
	}
}

// NormalizeAddress validates a hex account address and returns it in
// lower case with the 0x prefix.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAddress, addr)
	}
	return strings.ToLower(common.HexToAddress(addr).Hex()), nil
}

// validateStart checks everything Start needs and returns the normalised
// address. It has no side effects.
func validateStart(cfg domain.MonitorConfig) (string, error) {
	user, err := NormalizeAddress(cfg.UserAddress)
	if err != nil {
		return "", err
	}
	if cfg.PollingInterval <= 0 {
		return "", fmt.Errorf("%w: got %s", domain.ErrInvalidInterval, cfg.PollingInterval)
	}
	for _, a := range cfg.PriceAlerts {
		if err := a.Validate(); err != nil {
			return "", err
		}
	}
	return user, nil
}

// Start begins monitoring cfg.UserAddress, replacing any session already
// running for that user. It returns the normalised address.
func (m *Monitor) Start(cfg domain.MonitorConfig) (string, error) {
	user, err := validateStart(cfg)
	if err != nil {
		return "", err
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	m.stopLocked(user)

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		user:     user,
		interval: cfg.PollingInterval,
		cancel:   cancel,
		alerts:   slices.Clone(cfg.PriceAlerts),
		feeds:    make(map[Feed]int, len(Feeds)),
	}
	for _, feed := range Feeds {
		s.wg.Add(1)
		s.track(feed, 1)
		m.tasks.Add(1)
		go func() {
			defer s.wg.Done()
			defer m.tasks.Add(-1)
			defer s.track(feed, -1)
			m.runFeed(ctx, s, feed)
		}()
	}

	m.mu.Lock()
	m.sessions[user] = s
	m.mu.Unlock()

	m.logger.Info("monitoring started",
		slog.String("user", user),
		slog.Duration("interval", cfg.PollingInterval),
		slog.Int("price_alerts", len(cfg.PriceAlerts)),
	)
	return user, nil
}

// Stop ends monitoring for user and waits for its pollers to exit. Snapshots
// and notifications are kept. Stopping an unknown user is a no-op.
func (m *Monitor) Stop(user string) bool {
	if norm, err := NormalizeAddress(user); err == nil {
		user = norm
	}
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.stopLocked(user)
}

func (m *Monitor) stopLocked(user string) bool {
	m.mu.Lock()
	s, ok := m.sessions[user]
	delete(m.sessions, user)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.cancel()
	s.wg.Wait()
	m.logger.Info("monitoring stopped", slog.String("user", user))
	return true
}

// Shutdown stops every session.
func (m *Monitor) Shutdown() {
	for _, user := range m.Users() {
		m.Stop(user)
	}
}

// Users returns the monitored addresses in sorted order.
func (m *Monitor) Users() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]string, 0, len(m.sessions))
	for u := range m.sessions {
		users = append(users, u)
	}
	slices.Sort(users)
	return users
}

func (m *Monitor) lookup(user string) (*session, bool) {
	if norm, err := NormalizeAddress(user); err == nil {
		user = norm
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[user]
	return s, ok
}

// ActiveFeeds lists the running poller of each feed for user, one entry per
// running goroutine.
func (m *Monitor) ActiveFeeds(user string) []Feed {
	s, ok := m.lookup(user)
	if !ok {
		return nil
	}
	return s.activeFeeds()
}

// PriceAlerts returns the session's copy of user's alerts, including the
// ones already consumed.
func (m *Monitor) PriceAlerts(user string) ([]domain.PriceAlert, bool) {
	s, ok := m.lookup(user)
	if !ok {
		return nil, false
	}
	return s.priceAlerts(), true
}

// Tasks returns the number of poller goroutines alive across all sessions.
func (m *Monitor) Tasks() int {
	return int(m.tasks.Load())
}
