package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// DefaultBaseURL is the public Hyperliquid mainnet API.
const DefaultBaseURL = "https://api.hyperliquid.xyz"

// maxErrorBody caps how much of an error response ends up in the error text.
const maxErrorBody = 256

// Client is the REST client for the Hyperliquid info endpoint. It reads
// public account state and needs no credentials.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new info client.
//
// baseURL is the API root, e.g. "https://api.hyperliquid.xyz". A zero
// timeout means 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// UserFills returns the user's most recent fills.
func (c *Client) UserFills(ctx context.Context, user string) ([]domain.Fill, error) {
	var apiFills []APIFill
	if err := c.doInfo(ctx, infoRequest{Type: "userFills", User: user}, &apiFills); err != nil {
		return nil, fmt.Errorf("hyperliquid: user fills: %w", err)
	}
	fills := make([]domain.Fill, 0, len(apiFills))
	for i := range apiFills {
		fills = append(fills, apiFills[i].ToDomain())
	}
	return fills, nil
}

// OpenOrders returns the user's resting orders.
func (c *Client) OpenOrders(ctx context.Context, user string) ([]domain.Order, error) {
	var apiOrders []APIOpenOrder
	if err := c.doInfo(ctx, infoRequest{Type: "openOrders", User: user}, &apiOrders); err != nil {
		return nil, fmt.Errorf("hyperliquid: open orders: %w", err)
	}
	orders := make([]domain.Order, 0, len(apiOrders))
	for i := range apiOrders {
		orders = append(orders, apiOrders[i].ToDomain())
	}
	return orders, nil
}

// Portfolio returns the user's account and PnL series per window.
func (c *Client) Portfolio(ctx context.Context, user string) ([]domain.PortfolioWindow, error) {
	var periods []APIPortfolioPeriod
	if err := c.doInfo(ctx, infoRequest{Type: "portfolio", User: user}, &periods); err != nil {
		return nil, fmt.Errorf("hyperliquid: portfolio: %w", err)
	}
	windows := make([]domain.PortfolioWindow, 0, len(periods))
	for i := range periods {
		windows = append(windows, periods[i].ToDomain())
	}
	return windows, nil
}

// MidPrices returns the current mid price of every listed coin.
func (c *Client) MidPrices(ctx context.Context) (map[string]float64, error) {
	var raw map[string]string
	if err := c.doInfo(ctx, infoRequest{Type: "allMids"}, &raw); err != nil {
		return nil, fmt.Errorf("hyperliquid: all mids: %w", err)
	}
	return parseMids(raw), nil
}

// RateLimit returns the user's request budget usage.
func (c *Client) RateLimit(ctx context.Context, user string) (domain.RateLimitUsage, error) {
	var resp APIRateLimit
	if err := c.doInfo(ctx, infoRequest{Type: "userRateLimit", User: user}, &resp); err != nil {
		return domain.RateLimitUsage{}, fmt.Errorf("hyperliquid: user rate limit: %w", err)
	}
	return resp.ToDomain(), nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doInfo posts req to /info and decodes the JSON response into out.
func (c *Client) doInfo(ctx context.Context, req infoRequest, out any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	return nil
}

// checkHTTPStatus maps non-2xx responses to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > maxErrorBody {
		bodyStr = bodyStr[:maxErrorBody] + "..."
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
