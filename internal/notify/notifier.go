// Package notify forwards desktop notifications to external chat channels.
// Every registered sender receives the notification once it passes the type
// and priority filters.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a message with the given title and body.
	Send(ctx context.Context, title, message string) error
	// Name returns a short identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders.
type Notifier struct {
	senders     []Sender
	types       map[domain.NotificationType]bool
	minPriority domain.Priority
	logger      *slog.Logger
}

// NewNotifier creates a Notifier for senders. Only notification types listed
// in types are forwarded; an empty list allows every type. Notifications
// ranked below minPriority are dropped; an empty minPriority allows all.
func NewNotifier(senders []Sender, types []string, minPriority string, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.NotificationType]bool, len(types))
	for _, t := range types {
		allowed[domain.NotificationType(strings.TrimSpace(t))] = true
	}
	return &Notifier{
		senders:     senders,
		types:       allowed,
		minPriority: domain.Priority(minPriority),
		logger:      logger.With(slog.String("component", "notifier")),
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Accepts reports whether note passes the type and priority filters.
func (n *Notifier) Accepts(note domain.Notification) bool {
	if len(n.types) > 0 && !n.types[note.Type] {
		return false
	}
	return note.Priority.Rank() >= n.minPriority.Rank()
}

// Notify forwards note to every sender if it passes the filters.
func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	if !n.Accepts(note) {
		n.logger.DebugContext(ctx, "notification filtered out",
			slog.String("type", string(note.Type)),
			slog.String("priority", string(note.Priority)),
		)
		return nil
	}
	return n.dispatch(ctx, note.Title, formatMessage(note))
}

// NotifyAll sends a message to all senders regardless of filters.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender. A failing sender does not stop delivery to
// the rest; failures are combined into one error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

func formatMessage(note domain.Notification) string {
	var b strings.Builder
	b.WriteString(note.Message)
	if note.User != "" {
		fmt.Fprintf(&b, "\nuser: %s", note.User)
	}
	fmt.Fprintf(&b, "\npriority: %s", note.Priority)
	return b.String()
}
