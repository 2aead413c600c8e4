// Package domain defines the core business entities for the BetFeed
// prediction-market engine: markets, positions, price snapshots, and the
// ledger rules that tie them together.
package domain

import (
	"fmt"
	"time"

	"github.com/betfeed/betfeed/internal/lmsr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// Side is the outcome a trader takes a position on.
type Side string

const (
	SideYes Side = "Yes"
	SideNo  Side = "No"
)

// IsValid returns true if the side is a recognised outcome.
func (s Side) IsValid() bool {
	return s == SideYes || s == SideNo
}

// Opposite returns the other outcome side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// ──────────────────────────────────────────────────────────────────────────────
// Market
// ──────────────────────────────────────────────────────────────────────────────

// Market is one binary Yes/No prediction market.  The share counters, prices
// and volume form the market's ledger; they are mutated exclusively through
// ApplyBuy/ApplySell on a row snapshot loaded under a transactional lock.
type Market struct {
	ID          uuid.UUID `json:"id"           db:"id"`
	Description string    `json:"description"  db:"description"`
	Icon        string    `json:"icon"         db:"icon"`
	CreatorID   uuid.UUID `json:"creator_id"   db:"creator_id"`
	YesShares   int64     `json:"yes_shares"   db:"yes_shares"`
	NoShares    int64     `json:"no_shares"    db:"no_shares"`
	YesPrice    int       `json:"yes_price"    db:"yes_price"`
	NoPrice     int       `json:"no_price"     db:"no_price"`
	Volume      int64     `json:"volume"       db:"volume"` // cumulative traded cents
	Liquidity   float64   `json:"liquidity"    db:"liquidity"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"   db:"updated_at"`
}

// NewMarket seeds a freshly created market: zero outstanding shares on both
// sides, 50/50 prices, zero volume.  The caller persists it together with the
// initial PriceSnapshot in one transaction.
func NewMarket(creatorID uuid.UUID, description, icon string, liquidity float64) *Market {
	now := time.Now().UTC()
	return &Market{
		ID:          uuid.New(),
		Description: description,
		Icon:        icon,
		CreatorID:   creatorID,
		YesPrice:    50,
		NoPrice:     50,
		Liquidity:   liquidity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// PriceFor returns the current per-share price in cents for the given side.
func (m *Market) PriceFor(s Side) int {
	if s == SideYes {
		return m.YesPrice
	}
	return m.NoPrice
}

// SharesFor returns the outstanding share count for the given side.
func (m *Market) SharesFor(s Side) int64 {
	if s == SideYes {
		return m.YesShares
	}
	return m.NoShares
}

// ImpliedProbability returns the market's implied probability for a side as a
// decimal fraction, e.g. a 57-cent Yes price yields 0.57.
func (m *Market) ImpliedProbability(s Side) decimal.Decimal {
	return decimal.NewFromInt(int64(m.PriceFor(s))).Div(decimal.NewFromInt(100))
}

// Snapshot captures the market's current prices as an immutable history entry.
func (m *Market) Snapshot(at time.Time) PriceSnapshot {
	return PriceSnapshot{
		MarketID:  m.ID,
		YesPrice:  m.YesPrice,
		NoPrice:   m.NoPrice,
		CreatedAt: at.UTC(),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Ledger operations
// ──────────────────────────────────────────────────────────────────────────────

// ApplyBuy issues shares on one side: the side's counter grows by shares,
// both prices are recomputed from the post-increment counters, and cumulative
// volume grows by the stake.  Returns the snapshot to append to the price
// history.  The receiver must be a row loaded under the market's row lock —
// applying to a stale read would lose concurrent trades.
func (m *Market) ApplyBuy(side Side, shares, amountCents int64) (PriceSnapshot, error) {
	if !side.IsValid() {
		return PriceSnapshot{}, fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, side)
	}
	if shares <= 0 || amountCents <= 0 {
		return PriceSnapshot{}, fmt.Errorf("%w: non-positive share or amount", ErrInvalidTrade)
	}

	if side == SideYes {
		m.YesShares += shares
	} else {
		m.NoShares += shares
	}
	m.reprice()
	m.Volume += amountCents
	m.UpdatedAt = time.Now().UTC()

	return m.Snapshot(m.UpdatedAt), nil
}

// ApplySell retires shares on one side.  The counter shrinks, prices are
// recomputed from the post-decrement counters, and volume shrinks by the
// sale amount (floored at zero).  Selling more shares than are outstanding
// on the side is rejected — counters never go negative.
func (m *Market) ApplySell(side Side, shares, amountCents int64) (PriceSnapshot, error) {
	if !side.IsValid() {
		return PriceSnapshot{}, fmt.Errorf("%w: unknown side %q", ErrInvalidTrade, side)
	}
	if shares <= 0 || amountCents <= 0 {
		return PriceSnapshot{}, fmt.Errorf("%w: non-positive share or amount", ErrInvalidTrade)
	}
	if shares > m.SharesFor(side) {
		return PriceSnapshot{}, fmt.Errorf("%w: sell of %d exceeds %d outstanding %s shares",
			ErrInvalidTrade, shares, m.SharesFor(side), side)
	}

	if side == SideYes {
		m.YesShares -= shares
	} else {
		m.NoShares -= shares
	}
	m.reprice()
	m.Volume -= amountCents
	if m.Volume < 0 {
		m.Volume = 0
	}
	m.UpdatedAt = time.Now().UTC()

	return m.Snapshot(m.UpdatedAt), nil
}

// reprice recomputes both prices from the current counters.
func (m *Market) reprice() {
	m.YesPrice, m.NoPrice = lmsr.Prices(m.YesShares, m.NoShares, m.Liquidity)
}

// ──────────────────────────────────────────────────────────────────────────────
// PriceSnapshot — append-only history entry
// ──────────────────────────────────────────────────────────────────────────────

// PriceSnapshot is one immutable entry of a market's price history.  The
// history is the audit trail for the price chart: entries are appended in
// trade order and never rewritten.
type PriceSnapshot struct {
	ID        int64     `json:"-"          db:"id"`
	MarketID  uuid.UUID `json:"-"          db:"market_id"`
	YesPrice  int       `json:"yes_price"  db:"yes_price"`
	NoPrice   int       `json:"no_price"   db:"no_price"`
	CreatedAt time.Time `json:"timestamp"  db:"created_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// MarketSummary — read model for the feed and WS broadcasts
// ──────────────────────────────────────────────────────────────────────────────

// MarketSummary is a derived, read-only view of a Market.
type MarketSummary struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	YesPrice    int       `json:"yes_price"`
	NoPrice     int       `json:"no_price"`
	Volume      int64     `json:"volume"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToSummary builds a MarketSummary from the market.
func (m *Market) ToSummary() MarketSummary {
	return MarketSummary{
		ID:          m.ID,
		Description: m.Description,
		Icon:        m.Icon,
		YesPrice:    m.YesPrice,
		NoPrice:     m.NoPrice,
		Volume:      m.Volume,
		CreatedAt:   m.CreatedAt,
	}
}
