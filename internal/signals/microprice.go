package signals

import "github.com/sawpanic/cryptorun-execcore/internal/types"

// Microprice computes the size-weighted price between best bid and best ask,
// weighting each side's price by the *opposite* side's resting size — a
// heavy bid queue means the next trade is more likely to lift the ask, so
// the microprice leans toward the ask, and vice versa. The returned signal
// is the microprice's deviation from the arithmetic mid, expressed as a
// fraction of mid and rescaled by scale (the configured microprice_scale,
// default 10000): ((micro-mid)/mid)*scale.
//
// A one-sided or empty book returns 0: there is no meaningful lean to
// report without both sides.
func Microprice(book types.MarketData, scale float64) float64 {
	bid := book.BestBid()
	ask := book.BestAsk()

	if bid.Size.Sign() <= 0 || ask.Size.Sign() <= 0 || bid.Price.Sign() <= 0 || ask.Price.Sign() <= 0 {
		return 0
	}
	if !ask.Price.GreaterThan(bid.Price) {
		return 0
	}

	totalSize := bid.Size.Add(ask.Size)
	micro := bid.Price.Mul(ask.Size).Add(ask.Price.Mul(bid.Size)).Div(totalSize)

	mid := bid.Price.Add(ask.Price).Div(types.D(2))
	if mid.Sign() <= 0 {
		return 0
	}

	lean, _ := micro.Sub(mid).Div(mid).Float64()
	return clamp(lean*scale, -1, 1)
}
