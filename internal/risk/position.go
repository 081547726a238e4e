package risk

import (
	"time"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// PositionManager tracks one open position per symbol with weighted-average
// entry accounting, delegating the fill-accumulation arithmetic to
// types.Position so the invariant sign(size)*(mark-avg_entry)*|size| holds
// regardless of how many partial fills built the position up.
type PositionManager struct {
	positions map[string]*types.Position
}

// NewPositionManager builds an empty PositionManager.
func NewPositionManager() *PositionManager {
	return &PositionManager{positions: make(map[string]*types.Position)}
}

// ApplyFill records a signed fill (positive for a buy, negative for a sell)
// against the symbol's position, creating it if necessary, and returns the
// realized PnL generated by any reduction.
func (m *PositionManager) ApplyFill(symbol string, signedQty, price types.Decimal, now time.Time) types.Decimal {
	pos, ok := m.positions[symbol]
	if !ok {
		pos = &types.Position{Symbol: symbol}
		m.positions[symbol] = pos
	}
	return pos.ApplyFill(signedQty, price, now)
}

// Get returns the current position for a symbol, or a flat zero-value
// position if none exists.
func (m *PositionManager) Get(symbol string) types.Position {
	if pos, ok := m.positions[symbol]; ok {
		return *pos
	}
	return types.Position{Symbol: symbol}
}

// All returns a snapshot of every non-flat position.
func (m *PositionManager) All() []types.Position {
	var out []types.Position
	for _, p := range m.positions {
		if !p.IsFlat() {
			out = append(out, *p)
		}
	}
	return out
}
