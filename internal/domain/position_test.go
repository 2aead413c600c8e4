package domain_test

import (
	"testing"

	"github.com/betfeed/betfeed/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ── Valuation helpers ─────────────────────────────────────────────────────────

func TestPosition_AvgCost(t *testing.T) {
	p := &domain.Position{Shares: 87, AmountInvested: 5000}
	// 5000 / 87 = 57.47 cents per share
	want := decimal.NewFromFloat(57.47)
	if !p.AvgCost().Equal(want) {
		t.Errorf("AvgCost() = %s, want %s", p.AvgCost(), want)
	}
}

func TestPosition_AvgCost_EmptyPosition(t *testing.T) {
	p := &domain.Position{Shares: 0, AmountInvested: 0}
	if !p.AvgCost().IsZero() {
		t.Errorf("AvgCost of empty position = %s, want 0", p.AvgCost())
	}
}

func TestPosition_CurrentValueAndPnL(t *testing.T) {
	p := &domain.Position{Shares: 100, AmountInvested: 5000}

	// Marked at 57 cents the holding is worth 5700, up 700.
	if got := p.CurrentValue(57); !got.Equal(decimal.NewFromInt(5700)) {
		t.Errorf("CurrentValue(57) = %s, want 5700", got)
	}
	if got := p.UnrealizedPnL(57); !got.Equal(decimal.NewFromInt(700)) {
		t.Errorf("UnrealizedPnL(57) = %s, want 700", got)
	}

	// Marked at 43 the holding is underwater.
	if got := p.UnrealizedPnL(43); !got.Equal(decimal.NewFromInt(-700)) {
		t.Errorf("UnrealizedPnL(43) = %s, want -700", got)
	}
}

// ── PositionDetail ────────────────────────────────────────────────────────────

func TestPositionDetail_MarkPriceFollowsSide(t *testing.T) {
	d := &domain.PositionDetail{
		Position: domain.Position{Side: domain.SideYes},
		YesPrice: 57,
		NoPrice:  43,
	}
	if d.MarkPrice() != 57 {
		t.Errorf("Yes position MarkPrice = %d, want 57", d.MarkPrice())
	}
	d.Side = domain.SideNo
	if d.MarkPrice() != 43 {
		t.Errorf("No position MarkPrice = %d, want 43", d.MarkPrice())
	}
}

func TestPositionDetail_ToResponse(t *testing.T) {
	marketID := uuid.New()
	d := &domain.PositionDetail{
		Position: domain.Position{
			MarketID:       marketID,
			Side:           domain.SideNo,
			Shares:         200,
			AmountInvested: 8000,
		},
		Description: "Will the launch slip?",
		Icon:        "🚀",
		YesPrice:    35,
		NoPrice:     65,
	}

	resp := d.ToResponse()
	if resp.MarketID != marketID {
		t.Error("response should carry the market id")
	}
	if resp.MarkPrice != 65 {
		t.Errorf("MarkPrice = %d, want 65 (No side)", resp.MarkPrice)
	}
	if !resp.CurrentValue.Equal(decimal.NewFromInt(13000)) {
		t.Errorf("CurrentValue = %s, want 13000", resp.CurrentValue)
	}
	if !resp.UnrealizedPnL.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("UnrealizedPnL = %s, want 5000", resp.UnrealizedPnL)
	}
	if !resp.AvgCost.Equal(decimal.NewFromInt(40)) {
		t.Errorf("AvgCost = %s, want 40", resp.AvgCost)
	}
}
