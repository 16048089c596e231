package notification

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// Channel names a fan-out topic. The set is closed; every channel has a
// dedicated typed Topic on Bus.
type Channel string

const (
	ChannelNotification    Channel = "notification"
	ChannelRead            Channel = "notification-read"
	ChannelAllRead         Channel = "all-notifications-read"
	ChannelCleared         Channel = "notifications-cleared"
	ChannelPlaySound       Channel = "play-sound"
	ChannelDesktop         Channel = "desktop-notification"
	ChannelAlertConsumed   Channel = "alert-consumed"
	ChannelSettingsUpdated Channel = "settings-updated"
)

// AlertConsumed is published when a price alert fires and is disabled for the
// rest of its session. Persisting the disabled state is up to the subscriber.
type AlertConsumed struct {
	User           string            `json:"user"`
	Alert          domain.PriceAlert `json:"alert"`
	Price          float64           `json:"price"`
	NotificationID string            `json:"notificationId"`
}

// Cleared reports how many notifications a clear removed.
type Cleared struct {
	Removed int `json:"removed"`
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Topic is a synchronous, in-process fan-out for one channel. Subscribers are
// invoked in subscription order on the publishing goroutine.
type Topic[T any] struct {
	channel Channel
	logger  *slog.Logger

	mu   sync.Mutex
	seq  uint64
	subs []subscriber[T]
}

func newTopic[T any](ch Channel, logger *slog.Logger) *Topic[T] {
	return &Topic[T]{channel: ch, logger: logger}
}

// Channel returns the topic's channel name.
func (t *Topic[T]) Channel() Channel {
	return t.channel
}

// Subscribe registers fn and returns a function that removes it. The returned
// function is safe to call more than once.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	t.seq++
	id := t.seq
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, s := range t.subs {
				if s.id == id {
					t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Len returns the number of current subscribers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Publish delivers v to every subscriber registered at the time of the call.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := make([]subscriber[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, s := range subs {
		t.deliver(s, v)
	}
}

// deliver isolates a panicking subscriber from the publisher and from the
// subscribers after it.
func (t *Topic[T]) deliver(s subscriber[T], v T) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("subscriber panicked",
				slog.String("channel", string(t.channel)),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	s.fn(v)
}

// Bus groups one typed topic per channel.
type Bus struct {
	Notification    *Topic[domain.Notification]
	Read            *Topic[string]
	AllRead         *Topic[int]
	Cleared         *Topic[Cleared]
	PlaySound       *Topic[domain.Priority]
	Desktop         *Topic[domain.Notification]
	AlertConsumed   *Topic[AlertConsumed]
	SettingsUpdated *Topic[domain.NotificationSettings]
}

// NewBus creates a Bus with no subscribers.
func NewBus(logger *slog.Logger) *Bus {
	logger = logger.With(slog.String("component", "notification_bus"))
	return &Bus{
		Notification:    newTopic[domain.Notification](ChannelNotification, logger),
		Read:            newTopic[string](ChannelRead, logger),
		AllRead:         newTopic[int](ChannelAllRead, logger),
		Cleared:         newTopic[Cleared](ChannelCleared, logger),
		PlaySound:       newTopic[domain.Priority](ChannelPlaySound, logger),
		Desktop:         newTopic[domain.Notification](ChannelDesktop, logger),
		AlertConsumed:   newTopic[AlertConsumed](ChannelAlertConsumed, logger),
		SettingsUpdated: newTopic[domain.NotificationSettings](ChannelSettingsUpdated, logger),
	}
}
