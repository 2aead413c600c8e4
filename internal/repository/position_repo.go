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

// PositionRepository handles all database operations for user positions.
// Every mutation runs inside the orchestrator's trade transaction — positions
// and market ledgers always change together or not at all.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Get fetches a user's position in a market outside any transaction.
func (r *PositionRepository) Get(ctx context.Context, userID, marketID uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := r.db.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE user_id = $1 AND market_id = $2`,
		userID, marketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.Get: %w", err)
	}
	return &p, nil
}

// GetForUpdate fetches a user's position under a row lock within tx, so a
// concurrent sell of the same position blocks until this trade commits.
func (r *PositionRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, userID, marketID uuid.UUID) (*domain.Position, error) {
	var p domain.Position
	err := tx.GetContext(ctx, &p,
		`SELECT * FROM positions WHERE user_id = $1 AND market_id = $2 FOR UPDATE`,
		userID, marketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetForUpdate: %w", err)
	}
	return &p, nil
}

// Create inserts a new position inside an existing transaction.
func (r *PositionRepository) Create(ctx context.Context, tx *sqlx.Tx, p *domain.Position) error {
	query := `
		INSERT INTO positions
			(user_id, market_id, side, shares, amount_invested, created_at, updated_at)
		VALUES
			(:user_id, :market_id, :side, :shares, :amount_invested, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("position_repo.Create: %w", err)
	}
	return nil
}

// AddShares grows an existing position by a buy's share count and stake.
func (r *PositionRepository) AddShares(ctx context.Context, tx *sqlx.Tx, userID, marketID uuid.UUID, shares, amountCents int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE positions
		SET shares          = shares + $1,
		    amount_invested = amount_invested + $2,
		    updated_at      = now()
		WHERE user_id = $3 AND market_id = $4`,
		shares, amountCents, userID, marketID)
	if err != nil {
		return fmt.Errorf("position_repo.AddShares: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

// Reduce shrinks a position by a partial sell.  The cost basis is reduced by
// the sale amount, floored at zero so a sale after a price rise cannot leave
// a negative invested amount.  The WHERE clause guards the no-oversell
// invariant at the store level as well: a concurrent trade that already
// shrank the position makes this update match zero rows.
func (r *PositionRepository) Reduce(ctx context.Context, tx *sqlx.Tx, userID, marketID uuid.UUID, shares, amountCents int64) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE positions
		SET shares          = shares - $1,
		    amount_invested = GREATEST(amount_invested - $2, 0),
		    updated_at      = now()
		WHERE user_id = $3 AND market_id = $4 AND shares > $1`,
		shares, amountCents, userID, marketID)
	if err != nil {
		return fmt.Errorf("position_repo.Reduce: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: position no longer holds %d shares", domain.ErrInvalidTrade, shares)
	}
	return nil
}

// Delete removes a fully sold position.  Zero-share rows are never stored.
func (r *PositionRepository) Delete(ctx context.Context, tx *sqlx.Tx, userID, marketID uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM positions WHERE user_id = $1 AND market_id = $2`,
		userID, marketID)
	if err != nil {
		return fmt.Errorf("position_repo.Delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

// ListByUser returns all of a user's open positions joined with their market
// rows, newest first.
func (r *PositionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.PositionDetail, error) {
	var details []*domain.PositionDetail
	err := r.db.SelectContext(ctx, &details, `
		SELECT p.user_id, p.market_id, p.side, p.shares, p.amount_invested,
		       p.created_at, p.updated_at,
		       m.description, m.icon, m.yes_price, m.no_price
		FROM positions p
		JOIN markets m ON m.id = p.market_id
		WHERE p.user_id = $1
		ORDER BY p.updated_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("position_repo.ListByUser: %w", err)
	}
	return details, nil
}
