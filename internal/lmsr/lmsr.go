// Package lmsr implements the Logarithmic Market Scoring Rule pricing used
// by every binary Yes/No market, plus the sizing rule that converts a cash
// stake into a whole number of shares.
//
// Prices are expressed in integer cents per share on [1, 99]: a Yes price of
// 57 means the market currently implies a 57 % probability and one Yes share
// costs 57 cents.  The functions here are pure — no state, no I/O — and safe
// to call from any goroutine.
//
// Reference: Hanson, R. (2003) "Combinatorial Information Market Design".
package lmsr

import "math"

const (
	// DefaultLiquidity is the fallback liquidity parameter b.  Larger b
	// means more shares are required to move the price by a given amount.
	DefaultLiquidity = 350.0

	// MinPrice / MaxPrice bound each side's price.  A side never reads 0
	// ("impossible") or 100 ("certain") no matter how lopsided the share
	// supply becomes.
	MinPrice = 1
	MaxPrice = 99
)

// Prices converts outstanding share counts into the pair of per-share prices:
//
//	pYes = 100 · e^(qYes/b) / (e^(qYes/b) + e^(qNo/b))
//
// and symmetrically for No.  Each side is rounded to the nearest cent and
// clamped to [MinPrice, MaxPrice] independently, so the two sides are not
// forced to sum to exactly 100 at rounding boundaries.
//
// The exponentials are computed with the larger exponent subtracted out, so
// extreme share counts cannot overflow float64.
func Prices(yesShares, noShares int64, b float64) (yesPrice, noPrice int) {
	if b <= 0 {
		b = DefaultLiquidity
	}

	y := float64(yesShares) / b
	n := float64(noShares) / b
	shift := math.Max(y, n)

	expYes := math.Exp(y - shift)
	expNo := math.Exp(n - shift)
	total := expYes + expNo

	yesPrice = clamp(int(math.Round(100 * expYes / total)))
	noPrice = clamp(int(math.Round(100 * expNo / total)))
	return yesPrice, noPrice
}

// SharesFor sizes a trade: given a stake in minor units (cents) and the
// current per-share price in cents, it returns the whole number of shares the
// stake buys, flooring the division.  Returns 0 when the stake is too small
// to afford a single share or when either input is non-positive; callers
// treat 0 as an invalid trade.
func SharesFor(amountCents int64, price int) int64 {
	if amountCents <= 0 || price <= 0 {
		return 0
	}
	return amountCents / int64(price)
}

func clamp(p int) int {
	if p < MinPrice {
		return MinPrice
	}
	if p > MaxPrice {
		return MaxPrice
	}
	return p
}
