package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/betfeed/betfeed/internal/config"
	"github.com/betfeed/betfeed/internal/domain"
	"github.com/betfeed/betfeed/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ──────────────────────────────────────────────────────────────────────────────
// MarketService
// ──────────────────────────────────────────────────────────────────────────────

// MarketBroadcaster is the slice of the WS hub MarketService needs.
// Implemented by ws.Hub.
type MarketBroadcaster interface {
	BroadcastNewMarket(m *domain.Market)
}

// MarketService handles market creation and the read side: feed, detail,
// price history.
type MarketService struct {
	db          *sqlx.DB
	marketRepo  *repository.MarketRepository
	cfg         *config.Config
	broadcaster MarketBroadcaster // injected after the WS hub is built
}

// NewMarketService creates a MarketService.
func NewMarketService(db *sqlx.DB, marketRepo *repository.MarketRepository, cfg *config.Config) *MarketService {
	return &MarketService{
		db:         db,
		marketRepo: marketRepo,
		cfg:        cfg,
	}
}

// SetBroadcaster injects the WS Hub dependency post-construction.
func (s *MarketService) SetBroadcaster(b MarketBroadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// CreateMarket
// ──────────────────────────────────────────────────────────────────────────────

// CreateMarket opens a new market at 50/50 with zero outstanding shares and
// writes its seed history snapshot in the same transaction — the price chart
// always has at least one point, dated to the market's creation.
func (s *MarketService) CreateMarket(ctx context.Context, creatorID uuid.UUID, description, icon string) (_ *domain.Market, err error) {
	description = strings.TrimSpace(description)
	if description == "" || strings.TrimSpace(icon) == "" {
		return nil, fmt.Errorf("market_service.CreateMarket: description and icon are required")
	}

	m := domain.NewMarket(creatorID, description, icon, s.cfg.Market.Liquidity)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.marketRepo.Create(ctx, tx, m); err != nil {
		return nil, err
	}
	if err = s.marketRepo.AppendSnapshot(ctx, tx, m.Snapshot(m.CreatedAt)); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket: commit: %w", err)
	}

	if s.broadcaster != nil {
		go s.broadcaster.BroadcastNewMarket(m)
	}

	return m, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Read side
// ──────────────────────────────────────────────────────────────────────────────

// GetMarket fetches a market by id.
func (s *MarketService) GetMarket(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	m, err := s.marketRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetFeed returns markets the viewer has no position in, newest first.  This
// is the app's main discovery surface: holdings live on the positions screen,
// the feed shows what's left to trade.
func (s *MarketService) GetFeed(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*domain.Market, error) {
	if limit <= 0 || limit > s.cfg.Market.FeedPageLimit {
		limit = s.cfg.Market.FeedPageLimit
	}
	markets, err := s.marketRepo.ListFeed(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetFeed: %w", err)
	}
	return markets, nil
}

// ListMarkets returns all markets paginated, with the total count.
func (s *MarketService) ListMarkets(ctx context.Context, limit, offset int) ([]*domain.Market, int, error) {
	if limit <= 0 || limit > s.cfg.Market.FeedPageLimit {
		limit = s.cfg.Market.FeedPageLimit
	}
	markets, total, err := s.marketRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("market_service.ListMarkets: %w", err)
	}
	return markets, total, nil
}

// GetPriceHistory returns a market's append-only snapshot log for charting.
// Verifies the market exists so a bogus id yields 404 rather than an empty
// chart.
func (s *MarketService) GetPriceHistory(ctx context.Context, marketID uuid.UUID) ([]domain.PriceSnapshot, error) {
	if _, err := s.marketRepo.GetByID(ctx, marketID); err != nil {
		return nil, err
	}
	snaps, err := s.marketRepo.GetSnapshots(ctx, marketID, s.cfg.Market.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("market_service.GetPriceHistory: %w", err)
	}
	return snaps, nil
}
