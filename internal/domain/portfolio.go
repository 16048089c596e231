package domain

import "time"

// PortfolioDay is the window whose PnL history drives PnL notifications.
const PortfolioDay = "day"

// HistoryPoint is one (timestamp, value) sample of a portfolio series.
type HistoryPoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// PortfolioWindow holds the account series for one named period
// ("day", "week", "month", "allTime", ...).
type PortfolioWindow struct {
	Period              string         `json:"period"`
	AccountValueHistory []HistoryPoint `json:"accountValueHistory"`
	PnLHistory          []HistoryPoint `json:"pnlHistory"`
	Volume              float64        `json:"vlm"`
}

// LatestPnL returns the most recent PnL sample of the window.
func (w PortfolioWindow) LatestPnL() (float64, bool) {
	if len(w.PnLHistory) == 0 {
		return 0, false
	}
	return w.PnLHistory[len(w.PnLHistory)-1].Value, true
}

// FindWindow returns the window with the given period name.
func FindWindow(windows []PortfolioWindow, period string) (PortfolioWindow, bool) {
	for _, w := range windows {
		if w.Period == period {
			return w, true
		}
	}
	return PortfolioWindow{}, false
}

// RateLimitUsage is the user's API request budget consumption.
type RateLimitUsage struct {
	Used             int64   `json:"nRequestsUsed"`
	Cap              int64   `json:"nRequestsCap"`
	CumulativeVolume float64 `json:"cumVlm"`
}

// Percent returns used/cap*100, or 0 when no cap is reported.
func (u RateLimitUsage) Percent() float64 {
	if u.Cap <= 0 {
		return 0
	}
	return float64(u.Used) / float64(u.Cap) * 100
}
