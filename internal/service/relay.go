package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
	"github.com/alanyoungcy/hlwatch/internal/metrics"
	"github.com/alanyoungcy/hlwatch/internal/notification"
)

// Redis channels the relay publishes engine events on.
const (
	ChannelNotification  = "ch:notification"
	ChannelRead          = "ch:notification_read"
	ChannelAllRead       = "ch:notifications_read_all"
	ChannelCleared       = "ch:notifications_cleared"
	ChannelSound         = "ch:sound"
	ChannelAlertConsumed = "ch:alert"
	ChannelSettings      = "ch:settings"

	// StreamNotifications keeps a bounded replay log of created notifications.
	StreamNotifications = "stream:notifications"
)

// RelayChannels lists every channel the relay publishes on.
var RelayChannels = []string{
	ChannelNotification, ChannelRead, ChannelAllRead, ChannelCleared,
	ChannelSound, ChannelAlertConsumed, ChannelSettings,
}

// StreamWriter appends to a replay stream.
type StreamWriter interface {
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// Forwarder delivers desktop notifications to external channels.
type Forwarder interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Envelope is the JSON payload published on every relay channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    time.Time       `json:"at"`
}

// RelayDeps are the sinks a Relay writes to. Any of them may be nil.
type RelayDeps struct {
	Signals   domain.SignalBus
	Streams   StreamWriter
	Archive   domain.NotificationArchive
	Settings  domain.SettingsStore
	Forwarder Forwarder
}

type relayJob struct {
	name string
	run  func(ctx context.Context) error
}

// Relay moves engine events off the in-process bus and into Redis, Postgres
// and the external notifier. Bus callbacks only enqueue; Run does the I/O.
type Relay struct {
	deps   RelayDeps
	queue  chan relayJob
	logger *slog.Logger

	mu     sync.Mutex
	unsubs []func()
}

// NewRelay subscribes to every topic on events. buffer bounds the number of
// pending jobs; when full, new jobs are dropped.
func NewRelay(events *notification.Bus, deps RelayDeps, buffer int, logger *slog.Logger) *Relay {
	if buffer <= 0 {
		buffer = 256
	}
	r := &Relay{
		deps:   deps,
		queue:  make(chan relayJob, buffer),
		logger: logger.With(slog.String("component", "relay")),
	}
	r.subscribe(events)
	return r
}

func (r *Relay) subscribe(events *notification.Bus) {
	r.unsubs = append(r.unsubs,
		events.Notification.Subscribe(func(n domain.Notification) {
			metrics.NotificationsCreated.WithLabelValues(string(n.Type), string(n.Priority)).Inc()
			r.enqueue("notification", func(ctx context.Context) error {
				return errors.Join(
					r.publish(ctx, ChannelNotification, "notification", n),
					r.appendStream(ctx, n),
					r.archiveInsert(ctx, n),
				)
			})
		}),
		events.Read.Subscribe(func(id string) {
			r.enqueue("notification_read", func(ctx context.Context) error {
				var err error
				if r.deps.Archive != nil {
					err = r.deps.Archive.MarkRead(ctx, id)
					if errors.Is(err, domain.ErrNotFound) {
						err = nil
					}
				}
				return errors.Join(err, r.publish(ctx, ChannelRead, "notification_read", map[string]string{"id": id}))
			})
		}),
		events.AllRead.Subscribe(func(count int) {
			r.enqueue("all_notifications_read", func(ctx context.Context) error {
				var err error
				if r.deps.Archive != nil {
					_, err = r.deps.Archive.MarkAllRead(ctx)
				}
				return errors.Join(err, r.publish(ctx, ChannelAllRead, "all_notifications_read", map[string]int{"count": count}))
			})
		}),
		events.Cleared.Subscribe(func(c notification.Cleared) {
			r.enqueue("notifications_cleared", func(ctx context.Context) error {
				return r.publish(ctx, ChannelCleared, "notifications_cleared", c)
			})
		}),
		events.PlaySound.Subscribe(func(p domain.Priority) {
			r.enqueue("play_sound", func(ctx context.Context) error {
				return r.publish(ctx, ChannelSound, "play_sound", map[string]domain.Priority{"priority": p})
			})
		}),
		events.Desktop.Subscribe(func(n domain.Notification) {
			if r.deps.Forwarder == nil {
				return
			}
			r.enqueue("desktop_notification", func(ctx context.Context) error {
				return r.deps.Forwarder.Notify(ctx, n)
			})
		}),
		events.AlertConsumed.Subscribe(func(a notification.AlertConsumed) {
			r.enqueue("alert_consumed", func(ctx context.Context) error {
				return r.publish(ctx, ChannelAlertConsumed, "alert_consumed", a)
			})
		}),
		events.SettingsUpdated.Subscribe(func(s domain.NotificationSettings) {
			r.enqueue("settings_updated", func(ctx context.Context) error {
				var err error
				if r.deps.Settings != nil {
					err = r.deps.Settings.Save(ctx, s)
				}
				return errors.Join(err, r.publish(ctx, ChannelSettings, "settings_updated", s))
			})
		}),
	)
}

func (r *Relay) enqueue(name string, run func(ctx context.Context) error) {
	select {
	case r.queue <- relayJob{name: name, run: run}:
	default:
		metrics.RelayDropped.Inc()
		r.logger.Warn("relay queue full, dropping event", slog.String("event", name))
	}
}

// Pending returns the number of queued jobs.
func (r *Relay) Pending() int {
	return len(r.queue)
}

// Run drains the queue until ctx is cancelled. Jobs still queued at that
// point are discarded.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "relay started", slog.Int("buffer", cap(r.queue)))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("relay stopped", slog.Int("discarded", len(r.queue)))
			return nil
		case job := <-r.queue:
			r.handle(ctx, job)
		}
	}
}

func (r *Relay) handle(ctx context.Context, job relayJob) {
	jobCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := job.run(jobCtx); err != nil {
		r.logger.WarnContext(ctx, "relay job failed",
			slog.String("event", job.name),
			slog.String("error", err.Error()),
		)
	}
}

// Close unsubscribes from the bus. Run keeps draining until its context ends.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.unsubs {
		u()
	}
	r.unsubs = nil
}

func (r *Relay) publish(ctx context.Context, channel, event string, data any) error {
	if r.deps.Signals == nil {
		return nil
	}
	payload, err := encodeEnvelope(event, data)
	if err != nil {
		return err
	}
	return r.deps.Signals.Publish(ctx, channel, payload)
}

func (r *Relay) appendStream(ctx context.Context, n domain.Notification) error {
	if r.deps.Streams == nil {
		return nil
	}
	payload, err := encodeEnvelope("notification", n)
	if err != nil {
		return err
	}
	return r.deps.Streams.StreamAppend(ctx, StreamNotifications, payload)
}

func (r *Relay) archiveInsert(ctx context.Context, n domain.Notification) error {
	if r.deps.Archive == nil {
		return nil
	}
	return r.deps.Archive.Insert(ctx, n)
}

func encodeEnvelope(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw, At: time.Now().UTC()})
}
