package signals

import "github.com/sawpanic/cryptorun-execcore/internal/types"

// SlippageEstimate is the result of walking the book for a hypothetical
// order of a given size.
type SlippageEstimate struct {
	VWAP           types.Decimal
	SlippageBps    float64
	DepthExhausted bool // true if the book did not have enough size to fill
}

// EstimateSlippage walks the book on the side the order would trade against
// (asks for a buy, bids for a sell), accumulating a size-weighted average
// price until `size` is filled or the book is exhausted. SlippageBps is the
// VWAP's distance from the top-of-book price the order would have expected
// to pay at zero impact.
func EstimateSlippage(book types.MarketData, side types.Side, size types.Decimal) SlippageEstimate {
	levels := book.Asks
	refPrice := book.BestAsk().Price
	if side == types.SideSell {
		levels = book.Bids
		refPrice = book.BestBid().Price
	}

	remaining := size
	notional := types.Zero
	filled := types.Zero

	for _, lvl := range levels {
		if remaining.Sign() <= 0 {
			break
		}
		take := lvl.Size
		if take.GreaterThan(remaining) {
			take = remaining
		}
		notional = notional.Add(lvl.Price.Mul(take))
		filled = filled.Add(take)
		remaining = remaining.Sub(take)
	}

	depthExhausted := remaining.Sign() > 0

	if filled.Sign() <= 0 {
		return SlippageEstimate{VWAP: refPrice, SlippageBps: 0, DepthExhausted: true}
	}

	vwap := notional.Div(filled)

	var slippageBps float64
	if refPrice.Sign() > 0 {
		diff := vwap.Sub(refPrice)
		if side == types.SideSell {
			diff = diff.Neg()
		}
		slippageBps, _ = diff.Div(refPrice).Mul(types.D(10000)).Float64()
	}

	return SlippageEstimate{VWAP: vwap, SlippageBps: slippageBps, DepthExhausted: depthExhausted}
}
