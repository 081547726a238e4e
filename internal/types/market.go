package types

import (
	"fmt"
	"time"
)

// Level is a single price/size rung of an order book side.
type Level struct {
	Price Decimal
	Size  Decimal
}

// MarketData is a single point-in-time order book snapshot for one symbol on
// one venue, plus the aggressor trade tape used by the Impact signal.
type MarketData struct {
	Symbol    string
	Venue     string
	Timestamp time.Time

	Bids []Level // best-first
	Asks []Level // best-first

	// RecentTrades holds the aggressor-side tape inside the Impact lookback
	// window; empty is valid (Impact then contributes zero confidently).
	RecentTrades []Trade
}

// Trade is one aggressor print used by the Impact signal and by execution
// slippage bookkeeping.
type Trade struct {
	Price Decimal
	Size  Decimal
	Side  Side // aggressor side
	Time  time.Time
}

// BestBid returns the top of book bid, or a zero Level if the book is empty.
func (m MarketData) BestBid() Level {
	if len(m.Bids) == 0 {
		return Level{}
	}
	return m.Bids[0]
}

// BestAsk returns the top of book ask, or a zero Level if the book is empty.
func (m MarketData) BestAsk() Level {
	if len(m.Asks) == 0 {
		return Level{}
	}
	return m.Asks[0]
}

// MidPrice is the simple mid of best bid/ask.
func (m MarketData) MidPrice() Decimal {
	bid, ask := m.BestBid().Price, m.BestAsk().Price
	return bid.Add(ask).Div(D(2))
}

// Validate enforces the invariants a snapshot must satisfy before any signal
// is computed from it: both sides present, positive prices, and an
// uncrossed book. A crossed book (best_bid >= best_ask) is rejected here,
// upstream of the signal pipeline, matching the book-quality gate already
// used for microstructure validation elsewhere in this codebase.
func (m MarketData) Validate() error {
	if len(m.Bids) == 0 || len(m.Asks) == 0 {
		return fmt.Errorf("market data %s/%s: empty book side", m.Venue, m.Symbol)
	}
	bid, ask := m.BestBid().Price, m.BestAsk().Price
	if bid.Sign() <= 0 || ask.Sign() <= 0 {
		return fmt.Errorf("market data %s/%s: non-positive top of book price", m.Venue, m.Symbol)
	}
	if !ask.GreaterThan(bid) {
		return fmt.Errorf("market data %s/%s: crossed book (bid=%s ask=%s)", m.Venue, m.Symbol, bid, ask)
	}
	return nil
}

// SpreadBps returns the quoted spread in basis points of mid price.
func (m MarketData) SpreadBps() float64 {
	bid, ask := m.BestBid().Price, m.BestAsk().Price
	mid := m.MidPrice()
	if mid.Sign() <= 0 {
		return 0
	}
	spread, _ := ask.Sub(bid).Div(mid).Mul(D(10000)).Float64()
	return spread
}
