package domain

import "time"

// OrderSide is the exchange side code: "B" bids, "A" asks.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "B"
	OrderSideSell OrderSide = "A"
)

// Verb returns a past-tense description of the side for messages.
func (s OrderSide) Verb() string {
	if s == OrderSideSell {
		return "Sold"
	}
	return "Bought"
}

// Label returns a short human label.
func (s OrderSide) Label() string {
	if s == OrderSideSell {
		return "sell"
	}
	return "buy"
}

// Order is a resting open order as reported by the exchange.
type Order struct {
	OrderID    int64     `json:"oid"`
	Coin       string    `json:"coin"`
	Side       OrderSide `json:"side"`
	Size       float64   `json:"sz"`
	LimitPrice float64   `json:"limitPx"`
	Timestamp  time.Time `json:"timestamp"`
}
