package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/betfeed/betfeed/internal/domain"
	"github.com/google/uuid"
)

func newTestMarket() *domain.Market {
	return domain.NewMarket(uuid.New(), "Will it rain tomorrow?", "🌧️", 350)
}

// ── NewMarket ─────────────────────────────────────────────────────────────────

func TestNewMarket_SeedsFiftyFifty(t *testing.T) {
	m := newTestMarket()
	if m.YesPrice != 50 || m.NoPrice != 50 {
		t.Errorf("new market prices = (%d, %d), want (50, 50)", m.YesPrice, m.NoPrice)
	}
	if m.YesShares != 0 || m.NoShares != 0 {
		t.Errorf("new market shares = (%d, %d), want (0, 0)", m.YesShares, m.NoShares)
	}
	if m.Volume != 0 {
		t.Errorf("new market volume = %d, want 0", m.Volume)
	}
	if m.ID == uuid.Nil {
		t.Error("new market should have a non-nil id")
	}
}

// ── ApplyBuy ──────────────────────────────────────────────────────────────────

func TestApplyBuy_MovesPriceAndVolume(t *testing.T) {
	m := newTestMarket()

	snap, err := m.ApplyBuy(domain.SideYes, 100, 5000)
	if err != nil {
		t.Fatalf("ApplyBuy: %v", err)
	}

	if m.YesShares != 100 {
		t.Errorf("yes shares = %d, want 100", m.YesShares)
	}
	if m.YesPrice != 57 || m.NoPrice != 43 {
		t.Errorf("prices after 100-share Yes buy = (%d, %d), want (57, 43)",
			m.YesPrice, m.NoPrice)
	}
	if m.Volume != 5000 {
		t.Errorf("volume = %d, want 5000", m.Volume)
	}
	if snap.YesPrice != m.YesPrice || snap.NoPrice != m.NoPrice {
		t.Errorf("snapshot (%d, %d) disagrees with market (%d, %d)",
			snap.YesPrice, snap.NoPrice, m.YesPrice, m.NoPrice)
	}
	if snap.MarketID != m.ID {
		t.Error("snapshot should carry the market id")
	}
}

func TestApplyBuy_RejectsBadInputs(t *testing.T) {
	m := newTestMarket()

	if _, err := m.ApplyBuy("Maybe", 10, 100); !errors.Is(err, domain.ErrInvalidTrade) {
		t.Errorf("unknown side: err = %v, want ErrInvalidTrade", err)
	}
	if _, err := m.ApplyBuy(domain.SideYes, 0, 100); !errors.Is(err, domain.ErrInvalidTrade) {
		t.Errorf("zero shares: err = %v, want ErrInvalidTrade", err)
	}
	if _, err := m.ApplyBuy(domain.SideYes, 10, -5); !errors.Is(err, domain.ErrInvalidTrade) {
		t.Errorf("negative amount: err = %v, want ErrInvalidTrade", err)
	}
	// Failed buys must not touch the ledger.
	if m.YesShares != 0 || m.Volume != 0 {
		t.Errorf("rejected buys mutated the ledger: shares=%d volume=%d", m.YesShares, m.Volume)
	}
}

// ── ApplySell ─────────────────────────────────────────────────────────────────

func TestApplySell_RestoresPrice(t *testing.T) {
	m := newTestMarket()

	if _, err := m.ApplyBuy(domain.SideYes, 100, 5000); err != nil {
		t.Fatalf("ApplyBuy: %v", err)
	}
	if _, err := m.ApplySell(domain.SideYes, 100, 5000); err != nil {
		t.Fatalf("ApplySell: %v", err)
	}

	// Full round trip: counters, prices, and volume return to the seed state.
	if m.YesShares != 0 {
		t.Errorf("yes shares after round trip = %d, want 0", m.YesShares)
	}
	if m.YesPrice != 50 || m.NoPrice != 50 {
		t.Errorf("prices after round trip = (%d, %d), want (50, 50)", m.YesPrice, m.NoPrice)
	}
	if m.Volume != 0 {
		t.Errorf("volume after round trip = %d, want 0", m.Volume)
	}
}

func TestApplySell_RejectsOversell(t *testing.T) {
	m := newTestMarket()
	if _, err := m.ApplyBuy(domain.SideYes, 50, 2500); err != nil {
		t.Fatalf("ApplyBuy: %v", err)
	}

	if _, err := m.ApplySell(domain.SideYes, 51, 2500); !errors.Is(err, domain.ErrInvalidTrade) {
		t.Errorf("oversell: err = %v, want ErrInvalidTrade", err)
	}
	if m.YesShares != 50 {
		t.Errorf("rejected sell mutated counter: %d, want 50", m.YesShares)
	}

	// Selling the untouched side is also an oversell.
	if _, err := m.ApplySell(domain.SideNo, 1, 50); !errors.Is(err, domain.ErrInvalidTrade) {
		t.Errorf("sell of side with no supply: err = %v, want ErrInvalidTrade", err)
	}
}

func TestApplySell_VolumeFloorsAtZero(t *testing.T) {
	m := newTestMarket()
	if _, err := m.ApplyBuy(domain.SideYes, 100, 1000); err != nil {
		t.Fatalf("ApplyBuy: %v", err)
	}

	// Sell at a higher cash value than was ever staked: volume must not go
	// negative.
	if _, err := m.ApplySell(domain.SideYes, 100, 9000); err != nil {
		t.Fatalf("ApplySell: %v", err)
	}
	if m.Volume != 0 {
		t.Errorf("volume = %d, want 0 (floored)", m.Volume)
	}
}

// ── Snapshot ──────────────────────────────────────────────────────────────────

func TestSnapshot_CapturesCurrentPrices(t *testing.T) {
	m := newTestMarket()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	snap := m.Snapshot(at)
	if snap.YesPrice != 50 || snap.NoPrice != 50 {
		t.Errorf("seed snapshot = (%d, %d), want (50, 50)", snap.YesPrice, snap.NoPrice)
	}
	if !snap.CreatedAt.Equal(at) {
		t.Errorf("snapshot timestamp = %v, want %v", snap.CreatedAt, at)
	}
}

// ── Side ──────────────────────────────────────────────────────────────────────

func TestSide_Validity(t *testing.T) {
	if !domain.SideYes.IsValid() || !domain.SideNo.IsValid() {
		t.Error("Yes and No should be valid sides")
	}
	if domain.Side("UP").IsValid() {
		t.Error("unknown side should be invalid")
	}
	if domain.SideYes.Opposite() != domain.SideNo {
		t.Error("opposite of Yes should be No")
	}
	if domain.SideNo.Opposite() != domain.SideYes {
		t.Error("opposite of No should be Yes")
	}
}
