package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/betfeed/betfeed/internal/config"
	"github.com/betfeed/betfeed/internal/domain"
	"github.com/betfeed/betfeed/internal/lmsr"
	"github.com/betfeed/betfeed/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into TradeService
// ──────────────────────────────────────────────────────────────────────────────

// Broadcaster is the minimal interface TradeService needs from the WS hub.
// Implemented by ws.Hub.
type Broadcaster interface {
	BroadcastPriceUpdate(marketID uuid.UUID, snap domain.PriceSnapshot, volume int64)
}

// ──────────────────────────────────────────────────────────────────────────────
// TradeService
// ──────────────────────────────────────────────────────────────────────────────

// TradeService orchestrates buys and sells.  Each trade runs as a single
// PostgreSQL transaction: the market row is locked for the trade's entire
// load→commit span, so two trades on the same market serialize and the second
// prices off the first's committed share counts.  Nothing is written unless
// everything is — a validation failure or commit error leaves the market and
// position rows exactly as they were.
type TradeService struct {
	db           *sqlx.DB
	marketRepo   *repository.MarketRepository
	positionRepo *repository.PositionRepository
	cfg          *config.Config
	broadcaster  Broadcaster // injected after the WS hub is built
}

// NewTradeService creates a TradeService.
func NewTradeService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	cfg *config.Config,
) *TradeService {
	return &TradeService{
		db:           db,
		marketRepo:   marketRepo,
		positionRepo: positionRepo,
		cfg:          cfg,
	}
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *TradeService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// Buy
// ──────────────────────────────────────────────────────────────────────────────

// Buy stakes req.AmountCents on one side of a market.  The stake is converted
// to whole shares at the pre-trade price, the ledger is advanced, and the
// caller's position is created or grown — all in one transaction.  Buying the
// opposite side of an already-held position is rejected; a position flips
// only by selling out first.
func (s *TradeService) Buy(ctx context.Context, req domain.TradeRequest) (*domain.TradeReceipt, error) {
	if !req.Side.IsValid() {
		return nil, fmt.Errorf("%w: side must be Yes or No", domain.ErrInvalidTrade)
	}
	if req.AmountCents < s.cfg.Market.MinTradeCents {
		return nil, fmt.Errorf("%w: amount below minimum stake of %d cents",
			domain.ErrInvalidTrade, s.cfg.Market.MinTradeCents)
	}

	return s.withRetry(ctx, "buy", func(ctx context.Context) (*domain.TradeReceipt, error) {
		return s.buyOnce(ctx, req)
	})
}

func (s *TradeService) buyOnce(ctx context.Context, req domain.TradeRequest) (_ *domain.TradeReceipt, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("trade_service.Buy: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// ── 1. Lock and load the market ──────────────────────────────────────────
	market, err := s.marketRepo.GetForUpdate(ctx, tx, req.MarketID)
	if err != nil {
		return nil, err
	}

	// ── 2. Size the trade at the pre-trade price ─────────────────────────────
	shares := lmsr.SharesFor(req.AmountCents, market.PriceFor(req.Side))
	if shares <= 0 {
		return nil, fmt.Errorf("%w: stake of %d cents buys no shares at price %d",
			domain.ErrInvalidTrade, req.AmountCents, market.PriceFor(req.Side))
	}

	// ── 3. Check the caller's existing position ──────────────────────────────
	pos, err := s.positionRepo.GetForUpdate(ctx, tx, req.UserID, req.MarketID)
	switch {
	case err == nil:
		if pos.Side != req.Side {
			return nil, fmt.Errorf("%w: already holding %s shares in this market",
				domain.ErrInvalidTrade, pos.Side)
		}
	case errors.Is(err, domain.ErrPositionNotFound):
		pos = nil
	default:
		return nil, err
	}

	// ── 4. Advance the ledger ────────────────────────────────────────────────
	snap, err := market.ApplyBuy(req.Side, shares, req.AmountCents)
	if err != nil {
		return nil, err
	}
	if err = s.marketRepo.UpdateLedger(ctx, tx, market); err != nil {
		return nil, err
	}
	if err = s.marketRepo.AppendSnapshot(ctx, tx, snap); err != nil {
		return nil, err
	}

	// ── 5. Create or grow the position ───────────────────────────────────────
	if pos == nil {
		now := time.Now().UTC()
		err = s.positionRepo.Create(ctx, tx, &domain.Position{
			UserID:         req.UserID,
			MarketID:       req.MarketID,
			Side:           req.Side,
			Shares:         shares,
			AmountInvested: req.AmountCents,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	} else {
		err = s.positionRepo.AddShares(ctx, tx, req.UserID, req.MarketID, shares, req.AmountCents)
	}
	if err != nil {
		return nil, err
	}

	// ── 6. Commit ────────────────────────────────────────────────────────────
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("trade_service.Buy: commit: %w", err)
	}

	s.broadcastAsync(market.ID, snap, market.Volume)

	return &domain.TradeReceipt{
		MarketID:   market.ID,
		Side:       req.Side,
		Shares:     shares,
		Amount:     req.AmountCents,
		YesPrice:   market.YesPrice,
		NoPrice:    market.NoPrice,
		ExecutedAt: snap.CreatedAt,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Sell
// ──────────────────────────────────────────────────────────────────────────────

// Sell liquidates req.AmountCents worth of the caller's position in a market.
// The side is inferred from the open position.  A full sell deletes the
// position row; a partial sell shrinks it.  Selling more shares than held is
// rejected before any mutation.
func (s *TradeService) Sell(ctx context.Context, req domain.TradeRequest) (*domain.TradeReceipt, error) {
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidTrade)
	}

	return s.withRetry(ctx, "sell", func(ctx context.Context) (*domain.TradeReceipt, error) {
		return s.sellOnce(ctx, req)
	})
}

func (s *TradeService) sellOnce(ctx context.Context, req domain.TradeRequest) (_ *domain.TradeReceipt, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("trade_service.Sell: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// ── 1. Lock and load market + position ───────────────────────────────────
	market, err := s.marketRepo.GetForUpdate(ctx, tx, req.MarketID)
	if err != nil {
		return nil, err
	}
	pos, err := s.positionRepo.GetForUpdate(ctx, tx, req.UserID, req.MarketID)
	if err != nil {
		return nil, err
	}

	// ── 2. Size the sale against the held side's current price ───────────────
	shares := lmsr.SharesFor(req.AmountCents, market.PriceFor(pos.Side))
	if shares <= 0 {
		return nil, fmt.Errorf("%w: amount of %d cents sells no shares at price %d",
			domain.ErrInvalidTrade, req.AmountCents, market.PriceFor(pos.Side))
	}
	if shares > pos.Shares {
		return nil, fmt.Errorf("%w: sell of %d shares exceeds held %d",
			domain.ErrInvalidTrade, shares, pos.Shares)
	}

	// ── 3. Advance the ledger ────────────────────────────────────────────────
	snap, err := market.ApplySell(pos.Side, shares, req.AmountCents)
	if err != nil {
		return nil, err
	}
	if err = s.marketRepo.UpdateLedger(ctx, tx, market); err != nil {
		return nil, err
	}
	if err = s.marketRepo.AppendSnapshot(ctx, tx, snap); err != nil {
		return nil, err
	}

	// ── 4. Shrink or delete the position ─────────────────────────────────────
	if shares == pos.Shares {
		err = s.positionRepo.Delete(ctx, tx, req.UserID, req.MarketID)
	} else {
		err = s.positionRepo.Reduce(ctx, tx, req.UserID, req.MarketID, shares, req.AmountCents)
	}
	if err != nil {
		return nil, err
	}

	// ── 5. Commit ────────────────────────────────────────────────────────────
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("trade_service.Sell: commit: %w", err)
	}

	s.broadcastAsync(market.ID, snap, market.Volume)

	return &domain.TradeReceipt{
		MarketID:   market.ID,
		Side:       pos.Side,
		Shares:     shares,
		Amount:     req.AmountCents,
		YesPrice:   market.YesPrice,
		NoPrice:    market.NoPrice,
		ExecutedAt: snap.CreatedAt,
	}, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetMyPositions returns the caller's open positions with market context.
func (s *TradeService) GetMyPositions(ctx context.Context, userID uuid.UUID) ([]domain.PositionResponse, error) {
	details, err := s.positionRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("trade_service.GetMyPositions: %w", err)
	}
	out := make([]domain.PositionResponse, 0, len(details))
	for _, d := range details {
		out = append(out, d.ToResponse())
	}
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Conflict retry
// ──────────────────────────────────────────────────────────────────────────────

// withRetry runs one trade attempt up to cfg.Market.MaxTradeRetry times,
// retrying only on PostgreSQL serialization failures and deadlocks.  Row
// locks make those rare — they appear under lock-order inversions — but when
// the budget is exhausted the caller gets ErrTradeConflict, a transient
// "try again", never a half-applied trade.
func (s *TradeService) withRetry(
	ctx context.Context,
	op string,
	attempt func(ctx context.Context) (*domain.TradeReceipt, error),
) (*domain.TradeReceipt, error) {
	var lastErr error
	for i := 0; i < s.cfg.Market.MaxTradeRetry; i++ {
		receipt, err := attempt(ctx)
		if err == nil {
			return receipt, nil
		}
		if !isSerializationErr(err) {
			return nil, err
		}
		lastErr = err
		slog.Warn("trade conflicted, retrying", "op", op, "attempt", i+1)

		select {
		case <-time.After(s.cfg.Market.RetryBackoff * time.Duration(i+1)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrTradeConflict, lastErr)
}

// isSerializationErr reports whether err is a PostgreSQL write conflict worth
// retrying: 40001 serialization_failure or 40P01 deadlock_detected.
func isSerializationErr(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch string(pqErr.Code) {
	case "40001", "40P01":
		return true
	}
	return false
}

// broadcastAsync pushes the post-trade prices to WS clients.  Runs in a
// goroutine; a slow or absent hub never delays the trade response.
func (s *TradeService) broadcastAsync(marketID uuid.UUID, snap domain.PriceSnapshot, volume int64) {
	if s.broadcaster == nil {
		return
	}
	go s.broadcaster.BroadcastPriceUpdate(marketID, snap, volume)
}
