package domain

import "time"

// Fill is a single execution against one of the user's orders.
type Fill struct {
	Time      time.Time `json:"time"`
	Coin      string    `json:"coin"`
	Price     float64   `json:"px"`
	Size      float64   `json:"sz"`
	Side      OrderSide `json:"side"`
	ClosedPnL *float64  `json:"closedPnl,omitempty"`
	OrderID   int64     `json:"oid"`
	Hash      string    `json:"hash"`
	Direction string    `json:"dir"`
	Fee       float64   `json:"fee"`
}
