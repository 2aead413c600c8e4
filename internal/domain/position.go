package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Position
// ──────────────────────────────────────────────────────────────────────────────

// Position is a user's open holding in one market.  A user holds at most one
// position per market, always on a single side.  Positions shrink on partial
// sells and are deleted — never stored at zero — when fully sold.
type Position struct {
	UserID         uuid.UUID `json:"user_id"         db:"user_id"`
	MarketID       uuid.UUID `json:"market_id"       db:"market_id"`
	Side           Side      `json:"side"            db:"side"`
	Shares         int64     `json:"shares"          db:"shares"`
	AmountInvested int64     `json:"amount_invested" db:"amount_invested"` // cents
	CreatedAt      time.Time `json:"created_at"      db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"      db:"updated_at"`
}

// AvgCost returns the average acquisition price per share in cents, as a
// decimal for display.  Returns zero for an empty position (guard against
// division by zero).
func (p *Position) AvgCost() decimal.Decimal {
	if p.Shares <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(p.AmountInvested).
		Div(decimal.NewFromInt(p.Shares)).
		Round(2)
}

// CurrentValue returns the position's mark-to-market value in cents at the
// given per-share price.
func (p *Position) CurrentValue(price int) decimal.Decimal {
	return decimal.NewFromInt(p.Shares).Mul(decimal.NewFromInt(int64(price)))
}

// UnrealizedPnL returns CurrentValue minus the amount invested, in cents.
// Positive when the price moved in the holder's favour.
func (p *Position) UnrealizedPnL(price int) decimal.Decimal {
	return p.CurrentValue(price).Sub(decimal.NewFromInt(p.AmountInvested))
}

// ──────────────────────────────────────────────────────────────────────────────
// Trade value objects
// ──────────────────────────────────────────────────────────────────────────────

// TradeRequest carries the validated inputs for one buy or sell.
// AmountCents is the stake (buy) or the cash value being liquidated (sell)
// in minor units.  Side is ignored for sells — it is inferred from the
// caller's open position.
type TradeRequest struct {
	UserID      uuid.UUID
	MarketID    uuid.UUID
	Side        Side
	AmountCents int64
}

// TradeReceipt reports a committed trade: the exact share delta and the
// market prices that resulted from it.  Shares and prices are mutually
// consistent — both were computed inside the same transaction.
type TradeReceipt struct {
	MarketID   uuid.UUID `json:"market_id"`
	Side       Side      `json:"side"`
	Shares     int64     `json:"shares"`
	Amount     int64     `json:"amount"`
	YesPrice   int       `json:"yes_price"`
	NoPrice    int       `json:"no_price"`
	ExecutedAt time.Time `json:"executed_at"`
}

// PositionDetail is a Position joined with its market for the holdings list.
type PositionDetail struct {
	Position
	Description string `json:"description" db:"description"`
	Icon        string `json:"icon"        db:"icon"`
	YesPrice    int    `json:"yes_price"   db:"yes_price"`
	NoPrice     int    `json:"no_price"    db:"no_price"`
}

// MarkPrice returns the current per-share price for the position's side.
func (d *PositionDetail) MarkPrice() int {
	if d.Side == SideYes {
		return d.YesPrice
	}
	return d.NoPrice
}

// PositionResponse is the API-safe view of a holding, with valuation fields
// precomputed for the client.
type PositionResponse struct {
	MarketID       uuid.UUID       `json:"market_id"`
	Description    string          `json:"description"`
	Icon           string          `json:"icon"`
	Side           Side            `json:"side"`
	Shares         int64           `json:"shares"`
	AmountInvested int64           `json:"amount_invested"`
	AvgCost        decimal.Decimal `json:"avg_cost"`
	MarkPrice      int             `json:"mark_price"`
	CurrentValue   decimal.Decimal `json:"current_value"`
	UnrealizedPnL  decimal.Decimal `json:"unrealized_pnl"`
}

// ToResponse converts a PositionDetail to its API response form.
func (d *PositionDetail) ToResponse() PositionResponse {
	mark := d.MarkPrice()
	return PositionResponse{
		MarketID:       d.MarketID,
		Description:    d.Description,
		Icon:           d.Icon,
		Side:           d.Side,
		Shares:         d.Shares,
		AmountInvested: d.AmountInvested,
		AvgCost:        d.AvgCost(),
		MarkPrice:      mark,
		CurrentValue:   d.CurrentValue(mark),
		UnrealizedPnL:  d.UnrealizedPnL(mark),
	}
}
