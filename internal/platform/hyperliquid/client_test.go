package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

const testUser = "0x1234567890abcdef1234567890abcdef12345678"

// newInfoServer answers POST /info with the canned body for each request type.
func newInfoServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/info", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		body, ok := responses[req.Type]
		if !ok {
			http.Error(w, "unknown type", http.StatusUnprocessableEntity)
			return
		}
		if req.Type != "allMids" {
			assert.Equal(t, testUser, req.User)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestUserFills(t *testing.T) {
	srv := newInfoServer(t, map[string]string{
		"userFills": `[
			{"coin":"BTC","px":"65000.5","sz":"0.01","side":"B","time":1700000000000,"dir":"Open Long","closedPnl":"0.0","hash":"0xabc","oid":42,"fee":"0.3"},
			{"coin":"ETH","px":"3000","sz":"1","side":"A","time":1700000001000,"dir":"Close Long","closedPnl":"-12.5","hash":"0xdef","oid":43,"fee":"0.1"}
		]`,
	})
	c := NewClient(srv.URL, time.Second)

	fills, err := c.UserFills(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, fills, 2)

	assert.Equal(t, "BTC", fills[0].Coin)
	assert.InDelta(t, 65000.5, fills[0].Price, 1e-9)
	assert.Equal(t, domain.OrderSideBuy, fills[0].Side)
	assert.Equal(t, time.UnixMilli(1700000000000), fills[0].Time)
	assert.Equal(t, int64(42), fills[0].OrderID)

	require.NotNil(t, fills[1].ClosedPnL)
	assert.InDelta(t, -12.5, *fills[1].ClosedPnL, 1e-9)
	assert.Equal(t, domain.OrderSideSell, fills[1].Side)
}

func TestOpenOrders(t *testing.T) {
	srv := newInfoServer(t, map[string]string{
		"openOrders": `[{"coin":"SOL","limitPx":"150.25","oid":7,"side":"A","sz":"10","timestamp":1700000000000}]`,
	})
	orders, err := NewClient(srv.URL, time.Second).OpenOrders(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.Order{
		OrderID:    7,
		Coin:       "SOL",
		Side:       domain.OrderSideSell,
		Size:       10,
		LimitPrice: 150.25,
		Timestamp:  time.UnixMilli(1700000000000),
	}, orders[0])
}

func TestPortfolio(t *testing.T) {
	srv := newInfoServer(t, map[string]string{
		"portfolio": `[
			["day",{"accountValueHistory":[[1700000000000,"1000"]],"pnlHistory":[[1700000000000,"10"],[1700000060000,"12.5"]],"vlm":"5000"}],
			["week",{"accountValueHistory":[],"pnlHistory":[],"vlm":"0"}]
		]`,
	})
	windows, err := NewClient(srv.URL, time.Second).Portfolio(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, windows, 2)

	day, ok := domain.FindWindow(windows, domain.PortfolioDay)
	require.True(t, ok)
	latest, ok := day.LatestPnL()
	require.True(t, ok)
	assert.InDelta(t, 12.5, latest, 1e-9)
	assert.InDelta(t, 5000, day.Volume, 1e-9)
}

func TestPortfolioMalformedTuple(t *testing.T) {
	srv := newInfoServer(t, map[string]string{
		"portfolio": `[["day"]]`,
	})
	_, err := NewClient(srv.URL, time.Second).Portfolio(context.Background(), testUser)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedPayload)
}

func TestMidPrices(t *testing.T) {
	srv := newInfoServer(t, map[string]string{
		"allMids": `{"BTC":"65000.5","ETH":"3000","BAD":"n/a"}`,
	})
	mids, err := NewClient(srv.URL, time.Second).MidPrices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC": 65000.5, "ETH": 3000}, mids)
}

func TestRateLimit(t *testing.T) {
	srv := newInfoServer(t, map[string]string{
		"userRateLimit": `{"cumVlm":"1000.5","nRequestsUsed":850,"nRequestsCap":1000}`,
	})
	usage, err := NewClient(srv.URL, time.Second).RateLimit(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, int64(850), usage.Used)
	assert.Equal(t, int64(1000), usage.Cap)
	assert.InDelta(t, 85.0, usage.Percent(), 1e-9)
}

func TestHTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusForbidden, domain.ErrUnauthorized},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tt.status)
		}))
		_, err := NewClient(srv.URL, time.Second).OpenOrders(context.Background(), testUser)
		srv.Close()
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("x", 1000)))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).UserFills(context.Background(), testUser)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
	assert.Less(t, len(err.Error()), 400)
}

func TestContextCancelAbortsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(srv.URL, 5*time.Second).MidPrices(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
