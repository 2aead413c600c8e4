// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypePriceUpdate MsgType = "price_update"
	MsgTypeNewMarket   MsgType = "new_market"
)

// ──────────────────────────────────────────────────────────────────────────────
// PriceUpdateMessage — broadcast after every committed trade.
// ──────────────────────────────────────────────────────────────────────────────

// PriceUpdateMessage carries a market's post-trade prices so every open
// client's odds display and chart refresh without polling.
type PriceUpdateMessage struct {
	Type      MsgType   `json:"type"`
	MarketID  uuid.UUID `json:"market_id"`
	YesPrice  int       `json:"yes_price"`
	NoPrice   int       `json:"no_price"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// NewMarketMessage — broadcast when a market is created.
// ──────────────────────────────────────────────────────────────────────────────

// NewMarketMessage announces a freshly created market to the feed.
type NewMarketMessage struct {
	Type        MsgType   `json:"type"`
	MarketID    uuid.UUID `json:"market_id"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Timestamp   time.Time `json:"timestamp"`
}
