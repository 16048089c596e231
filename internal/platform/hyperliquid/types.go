package hyperliquid

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

var (
	errPortfolioPeriodMalformed = fmt.Errorf("%w: portfolio period must be a [name, metrics] pair", domain.ErrMalformedPayload)
	errHistoryPointMalformed    = fmt.Errorf("%w: history point must be a [timestamp, value] pair", domain.ErrMalformedPayload)
)

// millis is a Unix timestamp in milliseconds.
type millis int64

func (m millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

// infoRequest is the body of every POST /info call.
type infoRequest struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
}

// --------------------------------------------------------------------------
// Info API DTOs
// --------------------------------------------------------------------------

// APIFill is one entry of the userFills response.
type APIFill struct {
	Coin      string              `json:"coin"`
	Price     decimal.Decimal     `json:"px"`
	Size      decimal.Decimal     `json:"sz"`
	Side      string              `json:"side"`
	Time      millis              `json:"time"`
	Direction string              `json:"dir"`
	ClosedPnl decimal.NullDecimal `json:"closedPnl"`
	Hash      string              `json:"hash"`
	OrderID   int64               `json:"oid"`
	Fee       decimal.Decimal     `json:"fee"`
}

// ToDomain converts the wire fill.
func (f APIFill) ToDomain() domain.Fill {
	out := domain.Fill{
		Time:      f.Time.Time(),
		Coin:      f.Coin,
		Price:     f.Price.InexactFloat64(),
		Size:      f.Size.InexactFloat64(),
		Side:      domain.OrderSide(f.Side),
		OrderID:   f.OrderID,
		Hash:      f.Hash,
		Direction: f.Direction,
		Fee:       f.Fee.InexactFloat64(),
	}
	if f.ClosedPnl.Valid {
		pnl := f.ClosedPnl.Decimal.InexactFloat64()
		out.ClosedPnL = &pnl
	}
	return out
}

// APIOpenOrder is one entry of the openOrders response.
type APIOpenOrder struct {
	Coin       string          `json:"coin"`
	LimitPrice decimal.Decimal `json:"limitPx"`
	OrderID    int64           `json:"oid"`
	Side       string          `json:"side"`
	Size       decimal.Decimal `json:"sz"`
	Timestamp  millis          `json:"timestamp"`
}

// ToDomain converts the wire order.
func (o APIOpenOrder) ToDomain() domain.Order {
	return domain.Order{
		OrderID:    o.OrderID,
		Coin:       o.Coin,
		Side:       domain.OrderSide(o.Side),
		Size:       o.Size.InexactFloat64(),
		LimitPrice: o.LimitPrice.InexactFloat64(),
		Timestamp:  o.Timestamp.Time(),
	}
}

// APIPortfolioPeriod is one [period, metrics] tuple of the portfolio response.
type APIPortfolioPeriod struct {
	Period  string
	Metrics APIPortfolioMetrics
}

// UnmarshalJSON decodes the tuple form.
func (p *APIPortfolioPeriod) UnmarshalJSON(data []byte) error {
	var payload []json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode portfolio period: %w", err)
	}
	if len(payload) != 2 {
		return errPortfolioPeriodMalformed
	}
	if err := json.Unmarshal(payload[0], &p.Period); err != nil {
		return fmt.Errorf("decode portfolio period name: %w", err)
	}
	if err := json.Unmarshal(payload[1], &p.Metrics); err != nil {
		return fmt.Errorf("decode portfolio metrics: %w", err)
	}
	return nil
}

// APIPortfolioMetrics holds the series of one portfolio window.
type APIPortfolioMetrics struct {
	AccountValueHistory []APIHistoryPoint `json:"accountValueHistory"`
	PnLHistory          []APIHistoryPoint `json:"pnlHistory"`
	Volume              decimal.Decimal   `json:"vlm"`
}

// APIHistoryPoint is a [timestamp, value] tuple.
type APIHistoryPoint struct {
	Timestamp millis
	Value     decimal.Decimal
}

// UnmarshalJSON decodes the tuple form.
func (p *APIHistoryPoint) UnmarshalJSON(data []byte) error {
	var payload []json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("decode history point: %w", err)
	}
	if len(payload) != 2 {
		return errHistoryPointMalformed
	}
	if err := json.Unmarshal(payload[0], &p.Timestamp); err != nil {
		return fmt.Errorf("decode history timestamp: %w", err)
	}
	if err := json.Unmarshal(payload[1], &p.Value); err != nil {
		return fmt.Errorf("decode history value: %w", err)
	}
	return nil
}

func historyToDomain(points []APIHistoryPoint) []domain.HistoryPoint {
	out := make([]domain.HistoryPoint, 0, len(points))
	for _, p := range points {
		out = append(out, domain.HistoryPoint{Time: p.Timestamp.Time(), Value: p.Value.InexactFloat64()})
	}
	return out
}

// ToDomain converts the wire portfolio window.
func (p APIPortfolioPeriod) ToDomain() domain.PortfolioWindow {
	return domain.PortfolioWindow{
		Period:              p.Period,
		AccountValueHistory: historyToDomain(p.Metrics.AccountValueHistory),
		PnLHistory:          historyToDomain(p.Metrics.PnLHistory),
		Volume:              p.Metrics.Volume.InexactFloat64(),
	}
}

// APIRateLimit is the userRateLimit response.
type APIRateLimit struct {
	CumulativeVolume decimal.Decimal `json:"cumVlm"`
	RequestsUsed     int64           `json:"nRequestsUsed"`
	RequestsCap      int64           `json:"nRequestsCap"`
}

// ToDomain converts the wire rate-limit usage.
func (r APIRateLimit) ToDomain() domain.RateLimitUsage {
	return domain.RateLimitUsage{
		Used:             r.RequestsUsed,
		Cap:              r.RequestsCap,
		CumulativeVolume: r.CumulativeVolume.InexactFloat64(),
	}
}

// parseMids converts the allMids map of coin to decimal string. Entries that
// do not parse are dropped.
func parseMids(raw map[string]string) map[string]float64 {
	out := make(map[string]float64, len(raw))
	for coin, px := range raw {
		d, err := decimal.NewFromString(px)
		if err != nil {
			continue
		}
		out[coin] = d.InexactFloat64()
	}
	return out
}
