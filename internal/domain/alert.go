package domain

import (
	"fmt"
	"strings"
)

// AlertCondition selects the direction a price alert watches.
type AlertCondition string

const (
	AlertAbove AlertCondition = "above"
	AlertBelow AlertCondition = "below"
)

// PriceAlert is a one-shot trigger on a coin's mid price.
type PriceAlert struct {
	ID          string         `json:"id" toml:"id"`
	Coin        string         `json:"coin" toml:"coin"`
	TargetPrice float64        `json:"targetPrice" toml:"target_price"`
	Condition   AlertCondition `json:"condition" toml:"condition"`
	Enabled     bool           `json:"enabled" toml:"enabled"`
}

// Triggered reports whether price satisfies the alert condition. The target
// itself counts as crossed in both directions.
func (a PriceAlert) Triggered(price float64) bool {
	switch a.Condition {
	case AlertAbove:
		return price >= a.TargetPrice
	case AlertBelow:
		return price <= a.TargetPrice
	default:
		return false
	}
}

// Validate checks the alert is well formed.
func (a PriceAlert) Validate() error {
	if strings.TrimSpace(a.Coin) == "" {
		return fmt.Errorf("%w: coin is required", ErrInvalidAlert)
	}
	if a.TargetPrice <= 0 {
		return fmt.Errorf("%w: target price must be > 0 for %s", ErrInvalidAlert, a.Coin)
	}
	if a.Condition != AlertAbove && a.Condition != AlertBelow {
		return fmt.Errorf("%w: condition must be above or below, got %q", ErrInvalidAlert, a.Condition)
	}
	return nil
}
