package notification

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// NotificationStore is the in-memory, insertion-ordered notification list.
type NotificationStore struct {
	mu    sync.Mutex
	now   Clock
	items []domain.Notification
}

// NewNotificationStore creates an empty store. A nil clock means time.Now.
func NewNotificationStore(now Clock) *NotificationStore {
	if now == nil {
		now = time.Now
	}
	return &NotificationStore{now: now}
}

// Add stamps draft with an id and the current time, marks it unread and
// appends it.
func (s *NotificationStore) Add(draft domain.Notification) domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	draft.ID = newID(ts)
	draft.Timestamp = ts
	draft.Read = false
	s.items = append(s.items, draft)
	return draft
}

func newID(ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%d-%s", ts.UnixMilli(), suffix)
}

// List returns copies of the stored notifications. The full list is sorted
// newest first (equal timestamps: later insertion first); the unread-only
// list keeps insertion order.
func (s *NotificationStore) List(unreadOnly bool) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	if unreadOnly {
		out := make([]domain.Notification, 0, len(s.items))
		for _, n := range s.items {
			if !n.Read {
				out = append(out, n)
			}
		}
		return out
	}

	out := make([]domain.Notification, len(s.items))
	for i := range s.items {
		out[len(s.items)-1-i] = s.items[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Get returns the notification with id.
func (s *NotificationStore) Get(id string) (domain.Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.items {
		if n.ID == id {
			return n, true
		}
	}
	return domain.Notification{}, false
}

// MarkRead sets Read on the notification with id. It reports whether the
// notification changed: unknown and already-read ids both return false.
func (s *NotificationStore) MarkRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			if s.items[i].Read {
				return false
			}
			s.items[i].Read = true
			return true
		}
	}
	return false
}

// MarkAllRead marks every notification read and returns how many changed.
func (s *NotificationStore) MarkAllRead() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for i := range s.items {
		if !s.items[i].Read {
			s.items[i].Read = true
			changed++
		}
	}
	return changed
}

// Clear removes notifications. With a nil olderThan everything goes;
// otherwise only notifications stamped before now-olderThan are removed.
// It returns the number removed.
func (s *NotificationStore) Clear(olderThan *time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if olderThan == nil {
		n := len(s.items)
		s.items = nil
		return n
	}

	return s.clearBeforeLocked(s.now().Add(-*olderThan))
}

// ClearBefore removes notifications stamped before cutoff and returns how
// many were removed.
func (s *NotificationStore) ClearBefore(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearBeforeLocked(cutoff)
}

func (s *NotificationStore) clearBeforeLocked(cutoff time.Time) int {
	kept := s.items[:0]
	for _, n := range s.items {
		if !n.Timestamp.Before(cutoff) {
			kept = append(kept, n)
		}
	}
	removed := len(s.items) - len(kept)
	clear(s.items[len(kept):])
	s.items = kept
	return removed
}

// Before returns copies of notifications stamped before cutoff, in insertion
// order.
func (s *NotificationStore) Before(cutoff time.Time) []domain.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Notification
	for _, n := range s.items {
		if n.Timestamp.Before(cutoff) {
			out = append(out, n)
		}
	}
	return out
}

// Statistics summarises the store.
func (s *NotificationStore) Statistics() domain.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.Statistics{
		Total:      len(s.items),
		ByType:     make(map[domain.NotificationType]int),
		ByPriority: make(map[domain.Priority]int),
	}
	for _, n := range s.items {
		if !n.Read {
			st.Unread++
		}
		st.ByType[n.Type]++
		st.ByPriority[n.Priority]++
	}
	return st
}
