package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Market errors
var (
	// ErrMarketNotFound is returned when no market matches the given id.
	ErrMarketNotFound = errors.New("market not found")
)

// Trade errors
var (
	// ErrInvalidTrade is returned when a trade fails validation before any
	// mutation: non-positive amount, a stake too small to buy a single
	// share, or a sell larger than the caller's holding.  Callers wrap it
	// with the specific reason.
	ErrInvalidTrade = errors.New("invalid trade")

	// ErrPositionNotFound is returned when a sell is attempted in a market
	// where the caller holds no open position.
	ErrPositionNotFound = errors.New("no open position in this market")

	// ErrTradeConflict is returned after bounded retries of a trade keep
	// colliding with concurrent trades on the same market.  Transient —
	// the caller may simply retry.
	ErrTradeConflict = errors.New("trade conflicted with concurrent activity, try again")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// IsNotFound returns true when err (or any error in its chain) is one of the
// "entity not found" errors.  Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMarketNotFound) || errors.Is(err, ErrPositionNotFound)
}

// IsInvalidTrade returns true for validation failures that abort a trade
// before any state change (HTTP 400).
func IsInvalidTrade(err error) bool {
	return errors.Is(err, ErrInvalidTrade)
}

// IsTransient returns true for failures the caller can resolve by retrying
// the same request (HTTP 409 "try again").
func IsTransient(err error) bool {
	return errors.Is(err, ErrTradeConflict)
}
