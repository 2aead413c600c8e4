package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/betfeed/betfeed/internal/config"
	"github.com/betfeed/betfeed/internal/domain"
	"github.com/betfeed/betfeed/internal/service"
	"github.com/google/uuid"
)

// TestConcurrentBuys_SerializeOnLedger simulates 50 goroutines buying the
// same side of one market, serialized by a mutex.  This test verifies the
// serialization pattern compiles and passes -race.
//
// In the real TradeService, the market row's FOR UPDATE lock provides this
// guarantee: each buy prices off the previous buy's committed counters.  Here
// the same guard is replicated with sync primitives so the race detector can
// confirm the pattern is sound.
func TestConcurrentBuys_SerializeOnLedger(t *testing.T) {
	const workers = 50
	const sharesEach = 10
	const stakeEach = 500 // cents

	m := domain.NewMarket(uuid.New(), "concurrency probe", "⚡", 350)
	var mu sync.Mutex
	var failed int64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mu.Lock()
			defer mu.Unlock()

			if _, err := m.ApplyBuy(domain.SideYes, sharesEach, stakeEach); err != nil {
				atomic.AddInt64(&failed, 1)
			}
		}()
	}
	wg.Wait()

	if failed > 0 {
		t.Errorf("expected 0 failed buys, got %d", failed)
	}
	if m.YesShares != workers*sharesEach {
		t.Errorf("yes shares = %d, want %d", m.YesShares, workers*sharesEach)
	}
	if m.Volume != workers*stakeEach {
		t.Errorf("volume = %d, want %d", m.Volume, workers*stakeEach)
	}
	// 500 shares at b=350 must have moved the price above the 50/50 seed.
	if m.YesPrice <= 50 {
		t.Errorf("yes price after %d buys = %d, want > 50", workers, m.YesPrice)
	}
}

// TestConcurrentFullSell_OnlyOneWins verifies the no-oversell guard under
// concurrent access: of N goroutines trying to liquidate the same position in
// full, exactly one succeeds.  In production the positions row lock plus the
// `shares > $1` / held-share check enforces this; here the same check runs
// under a mutex.
func TestConcurrentFullSell_OnlyOneWins(t *testing.T) {
	const workers = 20

	m := domain.NewMarket(uuid.New(), "concurrency probe", "⚡", 350)
	if _, err := m.ApplyBuy(domain.SideYes, 100, 5000); err != nil {
		t.Fatalf("seed buy: %v", err)
	}
	pos := &domain.Position{Side: domain.SideYes, Shares: 100, AmountInvested: 5000}

	var (
		mu     sync.Mutex
		wins   int64
		losses int64
		wg     sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mu.Lock()
			defer mu.Unlock()

			// Full sell: the position must still hold every share.
			if pos.Shares < 100 {
				atomic.AddInt64(&losses, 1)
				return
			}
			if _, err := m.ApplySell(pos.Side, 100, 5000); err != nil {
				atomic.AddInt64(&losses, 1)
				return
			}
			pos.Shares = 0
			atomic.AddInt64(&wins, 1)
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly 1 goroutine should have liquidated the position, got %d", wins)
	}
	if losses != workers-1 {
		t.Errorf("expected %d rejections, got %d", workers-1, losses)
	}
	if m.YesShares != 0 {
		t.Errorf("market yes shares = %d, want 0 after the single full sell", m.YesShares)
	}
}

// ── TradeService input validation (no DB required) ───────────────────────────

func testTradeService() *service.TradeService {
	cfg := &config.Config{
		Market: config.MarketConfig{
			Liquidity:     350,
			MinTradeCents: 100,
			MaxTradeRetry: 3,
		},
	}
	// Validation runs before any transaction is opened, so a nil DB is fine.
	return service.NewTradeService(nil, nil, nil, cfg)
}

func TestBuy_RejectsUnknownSide(t *testing.T) {
	svc := testTradeService()
	_, err := svc.Buy(context.Background(), domain.TradeRequest{
		UserID:      uuid.New(),
		MarketID:    uuid.New(),
		Side:        "Maybe",
		AmountCents: 1000,
	})
	if !errors.Is(err, domain.ErrInvalidTrade) {
		t.Errorf("Buy with unknown side: err = %v, want ErrInvalidTrade", err)
	}
}

func TestBuy_RejectsStakeBelowMinimum(t *testing.T) {
	svc := testTradeService()
	_, err := svc.Buy(context.Background(), domain.TradeRequest{
		UserID:      uuid.New(),
		MarketID:    uuid.New(),
		Side:        domain.SideYes,
		AmountCents: 99, // below the 100-cent minimum
	})
	if !errors.Is(err, domain.ErrInvalidTrade) {
		t.Errorf("Buy below minimum stake: err = %v, want ErrInvalidTrade", err)
	}
}

func TestSell_RejectsNonPositiveAmount(t *testing.T) {
	svc := testTradeService()
	for _, amount := range []int64{0, -500} {
		_, err := svc.Sell(context.Background(), domain.TradeRequest{
			UserID:      uuid.New(),
			MarketID:    uuid.New(),
			AmountCents: amount,
		})
		if !errors.Is(err, domain.ErrInvalidTrade) {
			t.Errorf("Sell with amount %d: err = %v, want ErrInvalidTrade", amount, err)
		}
	}
}
