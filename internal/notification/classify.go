package notification

import (
	"fmt"
	"math"
	"strconv"

	"github.com/alanyoungcy/hlwatch/internal/domain"
)

// Thresholds for rate-limit usage, in percent.
const (
	rateLimitWarnPercent     = 80
	rateLimitCriticalPercent = 90
)

// PnLChange is the payload of a pnl_update notification.
type PnLChange struct {
	Previous      float64 `json:"previous"`
	Current       float64 `json:"current"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// PriceTrigger is the payload of a price_alert notification.
type PriceTrigger struct {
	Alert domain.PriceAlert `json:"alert"`
	Price float64           `json:"price"`
}

// RateLimitReport is the payload of a rate_limit_warning notification.
type RateLimitReport struct {
	Usage   domain.RateLimitUsage `json:"usage"`
	Percent float64               `json:"usagePercent"`
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func usd(v float64) string {
	if v < 0 {
		return "-$" + strconv.FormatFloat(-v, 'f', 2, 64)
	}
	return "$" + strconv.FormatFloat(v, 'f', 2, 64)
}

func tradeURL(coin string) string {
	return "/trade/" + coin
}

const portfolioURL = "/portfolio"

// FillNotification builds the order_filled draft for a new fill. A fill that
// realised a loss is high priority.
func FillNotification(user string, f domain.Fill) domain.Notification {
	priority := domain.PriorityMedium
	msg := fmt.Sprintf("%s %s %s at %s", f.Side.Verb(), num(f.Size), f.Coin, usd(f.Price))
	if f.ClosedPnL != nil {
		if *f.ClosedPnL < 0 {
			priority = domain.PriorityHigh
		}
		msg += fmt.Sprintf(" (closed PnL %s)", usd(*f.ClosedPnL))
	}
	return domain.Notification{
		User:      user,
		Type:      domain.NotificationOrderFilled,
		Priority:  priority,
		Title:     "Order Filled",
		Message:   msg,
		Data:      f,
		ActionURL: tradeURL(f.Coin),
	}
}

// CancelNotification builds the order_canceled draft for an order that left
// the open-order list.
func CancelNotification(user string, o domain.Order) domain.Notification {
	return domain.Notification{
		User:     user,
		Type:     domain.NotificationOrderCanceled,
		Priority: domain.PriorityMedium,
		Title:    "Order Canceled",
		Message: fmt.Sprintf("Your %s order for %s %s at %s was canceled",
			o.Side.Label(), num(o.Size), o.Coin, usd(o.LimitPrice)),
		Data:      o,
		ActionURL: tradeURL(o.Coin),
	}
}

// PnLDelta computes the change between two daily PnL readings. The percent
// is relative to |prev| and is 0 when prev is 0.
func PnLDelta(prev, cur float64) PnLChange {
	change := cur - prev
	pct := 0.0
	if prev != 0 {
		pct = change / math.Abs(prev) * 100
	}
	return PnLChange{Previous: prev, Current: cur, Change: change, ChangePercent: pct}
}

// PnLNotification builds the pnl_update draft when the change reaches
// threshold percent. ok is false when the change is below it.
func PnLNotification(user string, c PnLChange, threshold float64) (domain.Notification, bool) {
	if math.Abs(c.ChangePercent) < threshold {
		return domain.Notification{}, false
	}
	priority, title, sign := domain.PriorityMedium, "PnL Increased", "+"
	if c.Change < 0 {
		priority, title, sign = domain.PriorityHigh, "PnL Decreased", ""
	}
	return domain.Notification{
		User:     user,
		Type:     domain.NotificationPnLUpdate,
		Priority: priority,
		Title:    title,
		Message: fmt.Sprintf("Daily PnL changed by %s%.2f%% (%s)",
			sign, c.ChangePercent, usd(c.Change)),
		Data:      c,
		ActionURL: portfolioURL,
	}, true
}

// PriceAlertNotification builds the price_alert draft for a fired alert.
func PriceAlertNotification(user string, a domain.PriceAlert, price float64) domain.Notification {
	return domain.Notification{
		User:     user,
		Type:     domain.NotificationPriceAlert,
		Priority: domain.PriorityHigh,
		Title:    "Price Alert: " + a.Coin,
		Message: fmt.Sprintf("%s is %s %s (current %s)",
			a.Coin, a.Condition, usd(a.TargetPrice), usd(price)),
		Data:      PriceTrigger{Alert: a, Price: price},
		ActionURL: tradeURL(a.Coin),
	}
}

// RateLimitNotification builds the rate_limit_warning draft when usage is
// above the warning level.
func RateLimitNotification(user string, u domain.RateLimitUsage) (domain.Notification, bool) {
	pct := u.Percent()
	if pct <= rateLimitWarnPercent {
		return domain.Notification{}, false
	}
	priority := domain.PriorityHigh
	if pct > rateLimitCriticalPercent {
		priority = domain.PriorityCritical
	}
	return domain.Notification{
		User:     user,
		Type:     domain.NotificationRateLimitWarning,
		Priority: priority,
		Title:    "Rate Limit Warning",
		Message: fmt.Sprintf("API usage at %.1f%% (%d/%d requests)",
			pct, u.Used, u.Cap),
		Data: RateLimitReport{Usage: u, Percent: pct},
	}, true
}
