package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// Service is the notification engine: it runs the per-user pollers, keeps
// the notification list and settings, and publishes every change on its Bus.
type Service struct {
	store     *NotificationStore
	settings  *SettingsRegistry
	snapshots *SnapshotStore
	bus       *Bus
	monitor   *Monitor
	logger    *slog.Logger
}

// Option customises a Service.
type Option func(*serviceOptions)

type serviceOptions struct {
	clock    Clock
	settings domain.NotificationSettings
}

// WithClock overrides the time source used to stamp notifications.
func WithClock(c Clock) Option {
	return func(o *serviceOptions) { o.clock = c }
}

// WithSettings sets the initial notification settings.
func WithSettings(s domain.NotificationSettings) Option {
	return func(o *serviceOptions) { o.settings = s }
}

// NewService builds a Service reading exchange state through fetcher.
func NewService(fetcher Fetcher, logger *slog.Logger, opts ...Option) *Service {
	o := serviceOptions{clock: time.Now, settings: domain.DefaultSettings()}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.With(slog.String("component", "notification"))
	s := &Service{
		store:     NewNotificationStore(o.clock),
		settings:  NewSettingsRegistry(o.settings),
		snapshots: NewSnapshotStore(),
		bus:       NewBus(logger),
		logger:    logger,
	}
	s.monitor = newMonitor(fetcher, s.snapshots, s.settings, s.bus, s.emit, logger)
	return s
}

// emit stores draft and fans it out. Nothing happens once ctx is done, so a
// poll that finishes after its session stopped leaves no trace.
func (s *Service) emit(ctx context.Context, draft domain.Notification) (domain.Notification, bool) {
	if ctx.Err() != nil {
		return domain.Notification{}, false
	}
	n := s.store.Add(draft)
	s.logger.Debug("notification created",
		slog.String("id", n.ID),
		slog.String("user", n.User),
		slog.String("type", string(n.Type)),
		slog.String("priority", string(n.Priority)),
	)

	s.bus.Notification.Publish(n)
	settings := s.settings.Get()
	if settings.SoundEnabled {
		s.bus.PlaySound.Publish(n.Priority)
	}
	if settings.DesktopEnabled {
		s.bus.Desktop.Publish(n)
	}
	return n, true
}

// Events returns the fan-out bus.
func (s *Service) Events() *Bus {
	return s.bus
}

// StartMonitoring starts (or restarts) monitoring for cfg.UserAddress. A
// settings patch carried by cfg is merged only once the rest of cfg is
// known to be valid, so a rejected start changes nothing.
func (s *Service) StartMonitoring(cfg domain.MonitorConfig) (string, error) {
	if _, err := validateStart(cfg); err != nil {
		return "", err
	}
	if cfg.Settings != nil {
		if _, err := s.UpdateSettings(*cfg.Settings); err != nil {
			return "", err
		}
	}
	return s.monitor.Start(cfg)
}

// StopMonitoring stops monitoring user. It reports whether a session was
// running.
func (s *Service) StopMonitoring(user string) bool {
	return s.monitor.Stop(user)
}

// MonitoredUsers returns the addresses currently monitored.
func (s *Service) MonitoredUsers() []string {
	return s.monitor.Users()
}

// ActiveFeeds lists the running pollers for user.
func (s *Service) ActiveFeeds(user string) []Feed {
	return s.monitor.ActiveFeeds(user)
}

// PriceAlerts returns the session's alert list for user.
func (s *Service) PriceAlerts(user string) ([]domain.PriceAlert, bool) {
	return s.monitor.PriceAlerts(user)
}

// Settings returns the current settings.
func (s *Service) Settings() domain.NotificationSettings {
	return s.settings.Get()
}

// UpdateSettings merges patch into the current settings.
func (s *Service) UpdateSettings(patch domain.SettingsPatch) (domain.NotificationSettings, error) {
	next, err := s.settings.Update(patch)
	if err != nil {
		return next, err
	}
	s.bus.SettingsUpdated.Publish(next)
	return next, nil
}

// Notifications lists notifications; see NotificationStore.List for order.
func (s *Service) Notifications(unreadOnly bool) []domain.Notification {
	return s.store.List(unreadOnly)
}

// MarkAsRead marks one unread notification read and publishes
// notification-read. Unknown and already-read ids are ignored.
func (s *Service) MarkAsRead(id string) bool {
	if !s.store.MarkRead(id) {
		return false
	}
	s.bus.Read.Publish(id)
	return true
}

// MarkAllAsRead marks every notification read.
func (s *Service) MarkAllAsRead() int {
	n := s.store.MarkAllRead()
	s.bus.AllRead.Publish(n)
	return n
}

// ClearNotifications removes every notification, or with olderThan set only
// those older than it.
func (s *Service) ClearNotifications(olderThan *time.Duration) int {
	n := s.store.Clear(olderThan)
	s.bus.Cleared.Publish(Cleared{Removed: n})
	return n
}

// ClearNotificationsBefore removes notifications stamped before cutoff and
// publishes notifications-cleared.
func (s *Service) ClearNotificationsBefore(cutoff time.Time) int {
	n := s.store.ClearBefore(cutoff)
	s.bus.Cleared.Publish(Cleared{Removed: n})
	return n
}

// NotificationsBefore returns the notifications stamped before cutoff.
func (s *Service) NotificationsBefore(cutoff time.Time) []domain.Notification {
	return s.store.Before(cutoff)
}

// Statistics summarises the stored notifications.
func (s *Service) Statistics() domain.Statistics {
	return s.store.Statistics()
}

// Shutdown stops every monitoring session.
func (s *Service) Shutdown() {
	s.monitor.Shutdown()
	s.logger.Info("notification service stopped")
}
