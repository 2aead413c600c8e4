package lmsr_test

import (
	"testing"

	"github.com/betfeed/betfeed/internal/lmsr"
)

// ── Prices ────────────────────────────────────────────────────────────────────

func TestPrices_FreshMarketIsFiftyFifty(t *testing.T) {
	yes, no := lmsr.Prices(0, 0, lmsr.DefaultLiquidity)
	if yes != 50 || no != 50 {
		t.Errorf("Prices(0, 0) = (%d, %d), want (50, 50)", yes, no)
	}
}

func TestPrices_KnownScenario(t *testing.T) {
	// 100 Yes shares outstanding at b=350:
	// e^(100/350) ≈ 1.3307 → yes = round(100·1.3307/2.3307) = 57
	yes, no := lmsr.Prices(100, 0, 350)
	if yes != 57 {
		t.Errorf("yes price = %d, want 57", yes)
	}
	if no != 43 {
		t.Errorf("no price = %d, want 43", no)
	}
}

func TestPrices_Symmetry(t *testing.T) {
	for _, shares := range []int64{1, 50, 100, 500, 10000} {
		y1, n1 := lmsr.Prices(shares, 0, 350)
		y2, n2 := lmsr.Prices(0, shares, 350)
		if y1 != n2 || n1 != y2 {
			t.Errorf("Prices(%d,0) = (%d,%d) but Prices(0,%d) = (%d,%d); want mirror",
				shares, y1, n1, shares, y2, n2)
		}
	}
}

func TestPrices_EqualSharesStayFiftyFifty(t *testing.T) {
	for _, shares := range []int64{1, 100, 100000} {
		yes, no := lmsr.Prices(shares, shares, 350)
		if yes != 50 || no != 50 {
			t.Errorf("Prices(%d, %d) = (%d, %d), want (50, 50)", shares, shares, yes, no)
		}
	}
}

func TestPrices_MonotonicInYesShares(t *testing.T) {
	prev := 0
	for _, shares := range []int64{0, 10, 50, 100, 200, 400, 800, 1600} {
		yes, _ := lmsr.Prices(shares, 0, 350)
		if yes < prev {
			t.Errorf("yes price decreased when yes supply grew: %d shares → %d (prev %d)",
				shares, yes, prev)
		}
		prev = yes
	}
}

func TestPrices_ClampedToBounds(t *testing.T) {
	// Extremely lopsided supply: prices must stay inside [1, 99] and the
	// shifted-exponent computation must not overflow to NaN/Inf.
	cases := []struct {
		yes, no int64
	}{
		{1_000_000, 0},
		{0, 1_000_000},
		{1 << 50, 0},
		{0, 1 << 50},
	}
	for _, tc := range cases {
		yes, no := lmsr.Prices(tc.yes, tc.no, 350)
		if yes < lmsr.MinPrice || yes > lmsr.MaxPrice {
			t.Errorf("Prices(%d, %d) yes = %d, outside [1, 99]", tc.yes, tc.no, yes)
		}
		if no < lmsr.MinPrice || no > lmsr.MaxPrice {
			t.Errorf("Prices(%d, %d) no = %d, outside [1, 99]", tc.yes, tc.no, no)
		}
	}
}

func TestPrices_NonPositiveLiquidityFallsBack(t *testing.T) {
	yes, no := lmsr.Prices(100, 0, 0)
	wantYes, wantNo := lmsr.Prices(100, 0, lmsr.DefaultLiquidity)
	if yes != wantYes || no != wantNo {
		t.Errorf("Prices with b=0 = (%d, %d), want default-b result (%d, %d)",
			yes, no, wantYes, wantNo)
	}
}

func TestPrices_Pure(t *testing.T) {
	// Same inputs must always produce the same outputs.
	y1, n1 := lmsr.Prices(123, 456, 350)
	for i := 0; i < 100; i++ {
		y2, n2 := lmsr.Prices(123, 456, 350)
		if y1 != y2 || n1 != n2 {
			t.Fatalf("Prices not deterministic: (%d,%d) then (%d,%d)", y1, n1, y2, n2)
		}
	}
}

// ── SharesFor ─────────────────────────────────────────────────────────────────

func TestSharesFor(t *testing.T) {
	cases := []struct {
		name        string
		amountCents int64
		price       int
		want        int64
	}{
		{"exact division", 5000, 50, 100},
		{"floors remainder", 5000, 57, 87},
		{"stake below one share", 40, 57, 0},
		{"one cent at min price", 1, 1, 1},
		{"zero amount", 0, 50, 0},
		{"negative amount", -100, 50, 0},
		{"zero price", 5000, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lmsr.SharesFor(tc.amountCents, tc.price); got != tc.want {
				t.Errorf("SharesFor(%d, %d) = %d, want %d",
					tc.amountCents, tc.price, got, tc.want)
			}
		})
	}
}
