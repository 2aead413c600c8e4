// Package repository holds all sqlx/PostgreSQL data access for the market
// engine.  Mutating methods that participate in a trade take an explicit
// *sqlx.Tx so the orchestrator controls the transactional boundary.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/betfeed/betfeed/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// MarketRepository handles all database operations for Markets and their
// price-snapshot history.
type MarketRepository struct {
	db *sqlx.DB
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// Create inserts a new market row inside an existing transaction.  The caller
// seeds the initial price snapshot in the same transaction so a market never
// exists without its opening 50/50 history entry.
func (r *MarketRepository) Create(ctx context.Context, tx *sqlx.Tx, m *domain.Market) error {
	query := `
		INSERT INTO markets
			(id, description, icon, creator_id, yes_shares, no_shares,
			 yes_price, no_price, volume, liquidity, created_at, updated_at)
		VALUES
			(:id, :description, :icon, :creator_id, :yes_shares, :no_shares,
			 :yes_price, :no_price, :volume, :liquidity, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("market_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a market by its primary key.
func (r *MarketRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Market, error) {
	var m domain.Market
	err := r.db.GetContext(ctx, &m, `SELECT * FROM markets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetByID: %w", err)
	}
	return &m, nil
}

// GetForUpdate fetches a market row under an exclusive row lock within tx.
// The lock serializes concurrent trades on the same market for the lifetime
// of the transaction: the second trade blocks here until the first commits,
// then reads the committed counters.  Trades on other markets are unaffected.
func (r *MarketRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Market, error) {
	var m domain.Market
	err := tx.GetContext(ctx, &m, `SELECT * FROM markets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetForUpdate: %w", err)
	}
	return &m, nil
}

// UpdateLedger writes back a market's mutated ledger fields — share counters,
// prices, volume — inside the trade transaction.  Must only be called with a
// market loaded via GetForUpdate in the same tx.
func (r *MarketRepository) UpdateLedger(ctx context.Context, tx *sqlx.Tx, m *domain.Market) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE markets
		SET yes_shares = $1,
		    no_shares  = $2,
		    yes_price  = $3,
		    no_price   = $4,
		    volume     = $5,
		    updated_at = $6
		WHERE id = $7`,
		m.YesShares, m.NoShares, m.YesPrice, m.NoPrice, m.Volume, m.UpdatedAt, m.ID)
	if err != nil {
		return fmt.Errorf("market_repo.UpdateLedger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

// AppendSnapshot appends one immutable price-history entry inside tx.
func (r *MarketRepository) AppendSnapshot(ctx context.Context, tx *sqlx.Tx, s domain.PriceSnapshot) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO price_snapshots (market_id, yes_price, no_price, created_at)
		VALUES ($1, $2, $3, $4)`,
		s.MarketID, s.YesPrice, s.NoPrice, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("market_repo.AppendSnapshot: %w", err)
	}
	return nil
}

// GetSnapshots returns a market's price history in append order, capped at
// limit entries.  The id tiebreak keeps entries written within the same
// timestamp in insertion order.
func (r *MarketRepository) GetSnapshots(ctx context.Context, marketID uuid.UUID, limit int) ([]domain.PriceSnapshot, error) {
	var snaps []domain.PriceSnapshot
	err := r.db.SelectContext(ctx, &snaps, `
		SELECT * FROM price_snapshots
		WHERE market_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2`,
		marketID, limit)
	if err != nil {
		return nil, fmt.Errorf("market_repo.GetSnapshots: %w", err)
	}
	return snaps, nil
}

// ListFeed returns markets the viewer does NOT already hold a position in,
// newest first.  The exclusion is a parameterized anti-join — never a
// string-built id list.
func (r *MarketRepository) ListFeed(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]*domain.Market, error) {
	var markets []*domain.Market
	err := r.db.SelectContext(ctx, &markets, `
		SELECT m.* FROM markets m
		WHERE NOT EXISTS (
			SELECT 1 FROM positions p
			WHERE p.market_id = m.id AND p.user_id = $1
		)
		ORDER BY m.created_at DESC
		LIMIT $2 OFFSET $3`,
		viewerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_repo.ListFeed: %w", err)
	}
	return markets, nil
}

// List returns a paginated slice of all markets, newest first, with the total
// count for pagination metadata.
func (r *MarketRepository) List(ctx context.Context, limit, offset int) ([]*domain.Market, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM markets`); err != nil {
		return nil, 0, fmt.Errorf("market_repo.List count: %w", err)
	}

	var markets []*domain.Market
	err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM markets ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("market_repo.List select: %w", err)
	}
	return markets, total, nil
}
