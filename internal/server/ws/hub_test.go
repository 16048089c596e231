package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanBus hands out one Go channel per subscribed bus channel.
type chanBus struct {
	mu    sync.Mutex
	chans map[string]chan []byte
}

func newChanBus() *chanBus {
	return &chanBus{chans: make(map[string]chan []byte)}
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	ch := b.chans[channel]
	b.mu.Unlock()
	if ch != nil {
		ch <- payload
	}
	return nil
}

func (b *chanBus) Subscribe(_ context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan []byte, 8)
	b.chans[channel] = ch
	return ch, nil
}

func (b *chanBus) subscribed(n int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chans) == n
}

func TestHubBridgesBusToClients(t *testing.T) {
	bus := newChanBus()
	channels := []string{"ch:notification", "ch:sound"}
	hub := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{Channels: channels, Mode: "server"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()
	require.Eventually(t, func() bool { return bus.subscribed(2) }, time.Second, 5*time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var status struct {
		Event string `json:"event"`
		Data  struct {
			Mode     string   `json:"mode"`
			Channels []string `json:"channels"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, "status", status.Event)
	assert.Equal(t, "server", status.Data.Mode)
	assert.Equal(t, channels, status.Data.Channels)

	require.Eventually(t, func() bool { return hub.clientCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, bus.Publish(ctx, "ch:notification", []byte(`{"event":"notification"}`)))

	msgType, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, msgType)
	assert.JSONEq(t, `{"event":"notification"}`, string(raw))
}

func TestClientSubscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{"ch:notification": true}}

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ch:alert:*"}})
	assert.True(t, c.isSubscribed("ch:alert:btc"))

	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"ch:notification"}})
	assert.False(t, c.isSubscribed("ch:notification"))

	c.handleSubscription(subscribeMsg{Action: "bogus", Channels: []string{"ch:sound"}})
	assert.False(t, c.isSubscribed("ch:sound"))
}

func TestClientUserFilter(t *testing.T) {
	owned := []byte(`{"event":"notification","data":{"user":"0xABC","title":"Filled"}}`)
	unowned := []byte(`{"event":"settings_updated","data":{"soundEnabled":true}}`)

	assert.Equal(t, "0xabc", messageUser(owned))
	assert.Empty(t, messageUser(unowned))
	assert.Empty(t, messageUser([]byte("not json")))

	filtered := &client{user: "0xabc"}
	assert.True(t, filtered.wants(messageUser(owned)))
	assert.True(t, filtered.wants(messageUser(unowned)))
	assert.False(t, filtered.wants("0xdef"))

	everyone := &client{}
	assert.True(t, everyone.wants("0xdef"))
}
