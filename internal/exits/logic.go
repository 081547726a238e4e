// Package exits implements the TPSLManager's precedence-ordered exit
// evaluation and the PositionCloser that acts on it, adapting the
// precedence-chain evaluator idiom used elsewhere in this codebase (there,
// a seven-reason momentum-exit ladder) down to this system's three exit
// triggers: stop-loss, take-profit, and max position age.
package exits

import (
	"context"
	"fmt"
	"time"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// ExitInputs is everything TPSLManager needs to evaluate one open position
// on one tick.
type ExitInputs struct {
	Symbol       string
	Side         types.Side
	EntryPrice   types.Decimal
	CurrentPrice types.Decimal
	OpenedAt     time.Time
	Now          time.Time

	TakeProfitBps float64
	StopLossBps   float64
	MaxAge        time.Duration
}

// ExitResult is the outcome of one evaluation.
type ExitResult struct {
	Symbol       string           `json:"symbol"`
	Timestamp    time.Time        `json:"timestamp"`
	ShouldExit   bool             `json:"should_exit"`
	Reason       types.ExitReason `json:"reason"`
	TriggeredBy  string           `json:"triggered_by"`
	CurrentPrice float64          `json:"current_price"`
	EntryPrice   float64          `json:"entry_price"`
	PnLBps       float64          `json:"pnl_bps"`
	Age          time.Duration    `json:"age"`
}

// TPSLManager evaluates the stop-loss, take-profit, and max-age triggers in
// that precedence order: stop-loss always wins over take-profit (capital
// preservation first), and max-age is checked last since it fires
// regardless of PnL sign.
type TPSLManager struct{}

// NewTPSLManager builds a TPSLManager. It holds no state of its own — every
// evaluation is pure given ExitInputs — so a single instance is shared
// across all symbols.
func NewTPSLManager() *TPSLManager {
	return &TPSLManager{}
}

// Evaluate runs the precedence chain: HardStop (stop-loss) > TakeProfit >
// MaxAge > no exit.
func (m *TPSLManager) Evaluate(ctx context.Context, in ExitInputs) (*ExitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pnlBps := pnlBps(in.Side, in.EntryPrice, in.CurrentPrice)
	age := in.Now.Sub(in.OpenedAt)

	result := &ExitResult{
		Symbol:       in.Symbol,
		Timestamp:    in.Now,
		CurrentPrice: float64Of(in.CurrentPrice),
		EntryPrice:   float64Of(in.EntryPrice),
		PnLBps:       pnlBps,
		Age:          age,
		Reason:       types.ExitReasonNone,
	}

	if pnlBps <= -in.StopLossBps {
		result.ShouldExit = true
		result.Reason = types.ExitReasonStopLoss
		result.TriggeredBy = fmt.Sprintf("pnl %.1fbps <= -%.1fbps stop loss", pnlBps, in.StopLossBps)
		return result, nil
	}

	if pnlBps >= in.TakeProfitBps {
		result.ShouldExit = true
		result.Reason = types.ExitReasonTakeProfit
		result.TriggeredBy = fmt.Sprintf("pnl %.1fbps >= %.1fbps take profit", pnlBps, in.TakeProfitBps)
		return result, nil
	}

	if in.MaxAge > 0 && age >= in.MaxAge {
		result.ShouldExit = true
		result.Reason = types.ExitReasonMaxAge
		result.TriggeredBy = fmt.Sprintf("age %s >= max age %s", age, in.MaxAge)
		return result, nil
	}

	return result, nil
}

func pnlBps(side types.Side, entry, current types.Decimal) float64 {
	if entry.Sign() <= 0 {
		return 0
	}
	diff := current.Sub(entry)
	if side == types.SideSell {
		diff = diff.Neg()
	}
	bps, _ := diff.Div(entry).Mul(types.D(10000)).Float64()
	return bps
}

func float64Of(d types.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
