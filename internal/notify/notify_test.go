package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

type stubSender struct {
	name   string
	err    error
	titles []string
}

func (s *stubSender) Send(_ context.Context, title, _ string) error {
	s.titles = append(s.titles, title)
	return s.err
}

func (s *stubSender) Name() string { return s.name }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifierFilters(t *testing.T) {
	tests := []struct {
		name     string
		types    []string
		min      string
		note     domain.Notification
		expected bool
	}{
		{"no filters", nil, "", domain.Notification{Type: domain.NotificationOrderFilled, Priority: domain.PriorityLow}, true},
		{"type allowed", []string{"price_alert"}, "", domain.Notification{Type: domain.NotificationPriceAlert, Priority: domain.PriorityHigh}, true},
		{"type blocked", []string{"price_alert"}, "", domain.Notification{Type: domain.NotificationOrderFilled, Priority: domain.PriorityHigh}, false},
		{"below min priority", nil, "high", domain.Notification{Type: domain.NotificationPnLUpdate, Priority: domain.PriorityMedium}, false},
		{"at min priority", nil, "high", domain.Notification{Type: domain.NotificationPnLUpdate, Priority: domain.PriorityHigh}, true},
		{"above min priority", nil, "high", domain.Notification{Type: domain.NotificationRateLimitWarning, Priority: domain.PriorityCritical}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &stubSender{name: "stub"}
			n := NewNotifier([]Sender{s}, tt.types, tt.min, quietLogger())
			tt.note.Title = "t"
			require.NoError(t, n.Notify(context.Background(), tt.note))
			assert.Equal(t, tt.expected, len(s.titles) == 1)
		})
	}
}

func TestNotifierCombinesSenderErrors(t *testing.T) {
	bad := &stubSender{name: "bad", err: errors.New("boom")}
	good := &stubSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, "", quietLogger())

	err := n.NotifyAll(context.Background(), "title", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: boom")
	assert.Len(t, good.titles, 1, "later senders still receive the message")
}

func TestTelegramSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "TOKEN", "42")
	require.NoError(t, s.Send(context.Background(), "Order Filled", "Bought 1 BTC"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*Order Filled*\nBought 1 BTC", got["text"])
}

func TestDiscordSenderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
}

func TestDiscordSenderPayload(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscordSender(srv.URL).Send(context.Background(), "Price Alert", "ETH above"))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "Price Alert", got.Embeds[0].Title)
	assert.Equal(t, "ETH above", got.Embeds[0].Description)
}
