package signals

import "github.com/sawpanic/cryptorun-execcore/internal/types"

// OBI computes order book imbalance over the top N levels of each side,
// weighted by a linear decay so the best level counts for more than the
// N-th. Weight for level i (0-indexed) is (N-i)/sum(1..N); the result is
// bounded to [-1, 1] by construction: positive means bid-heavy (buy
// pressure), negative means ask-heavy.
//
// A book with fewer than N levels on a side simply sums what is there; an
// empty book (both sides zero size) returns 0 rather than dividing by zero.
func OBI(book types.MarketData, levels int) float64 {
	if levels <= 0 {
		levels = 1
	}

	weightSum := 0.0
	for i := 1; i <= levels; i++ {
		weightSum += float64(i)
	}

	numerator := 0.0
	denominator := 0.0

	for i := 0; i < levels; i++ {
		w := float64(levels-i) / weightSum

		var bidSize, askSize float64
		if i < len(book.Bids) {
			bidSize, _ = book.Bids[i].Size.Float64()
		}
		if i < len(book.Asks) {
			askSize, _ = book.Asks[i].Size.Float64()
		}

		numerator += w * (bidSize - askSize)
		denominator += w * (bidSize + askSize)
	}

	if denominator == 0 {
		return 0
	}

	v := numerator / denominator
	return clamp(v, -1, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
