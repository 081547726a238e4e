// Package risk implements the pre-trade HardLimits gate pipeline and the
// PositionManager that tracks weighted-average-entry exposure, following
// the ordered, short-circuiting gate-pipeline idiom used elsewhere in this
// codebase for pre-trade checks, repurposed here from entry-gate scoring to
// the risk checks the execution core actually needs.
package risk

import (
	"fmt"

	"github.com/sawpanic/cryptorun-execcore/internal/errs"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// Limits holds the static thresholds HardLimits evaluates against.
// MaxSingleLossPct and MaxDailyDrawdownPct are fractions of NAV in (0,1),
// not flat USD amounts, so the same configuration scales correctly across
// accounts of different size.
type Limits struct {
	MaxPositionUSD      float64
	MaxSingleLossPct    float64
	MaxDailyDrawdownPct float64
	InitialNAV          float64
}

// HardLimits runs the ordered pre-trade checks and tracks the running NAV
// against a fixed day-start snapshot to evaluate the daily drawdown fuse.
// Once the fuse trips, the breach is latched: every subsequent check fails
// until Reset is called at the next session boundary, regardless of whether
// NAV has since recovered.
type HardLimits struct {
	limits Limits

	nav         float64
	dayStartNAV float64
	breached    bool
	breachMsg   string
}

// NewHardLimits builds a HardLimits tracker seeded at the configured initial
// NAV for both the running NAV and the day-start snapshot.
func NewHardLimits(limits Limits) *HardLimits {
	return &HardLimits{
		limits:      limits,
		nav:         limits.InitialNAV,
		dayStartNAV: limits.InitialNAV,
	}
}

// CheckResult is the outcome of a single named pre-trade check.
type CheckResult struct {
	Name   string
	Passed bool
	Detail string
}

// EvaluateOrder runs the ordered pre-trade checks for a candidate order:
// (1) projected notional, (2) single-trade max loss, (3) the breach latch.
// Checks short-circuit on the first failure. existingSize is the symbol's
// current signed position (0 if flat); orderSignedSize is this order's size
// signed by side (positive BUY, negative SELL); mark prices the projected
// notional.
func (h *HardLimits) EvaluateOrder(existingSize, orderSignedSize, mark types.Decimal, estimatedLossUSD float64) (CheckResult, error) {
	if h.breached {
		return CheckResult{Name: "breach_latch", Passed: false, Detail: h.breachMsg},
			&errs.BreachLatched{Reason: h.breachMsg}
	}

	projected := existingSize.Add(orderSignedSize).Abs()
	notionalUSD, _ := projected.Mul(mark).Float64()
	if notionalUSD > h.limits.MaxPositionUSD {
		detail := fmt.Sprintf("projected notional %.2f exceeds max %.2f", notionalUSD, h.limits.MaxPositionUSD)
		return CheckResult{Name: "max_position_usd", Passed: false, Detail: detail},
			&errs.RiskRejected{Check: "max_position_usd", Detail: detail}
	}

	maxLossUSD := h.limits.MaxSingleLossPct * h.limits.InitialNAV
	if estimatedLossUSD > maxLossUSD {
		detail := fmt.Sprintf("estimated loss %.2f exceeds max %.2f (%.2f%% of initial NAV)",
			estimatedLossUSD, maxLossUSD, h.limits.MaxSingleLossPct*100)
		return CheckResult{Name: "max_single_loss_pct", Passed: false, Detail: detail},
			&errs.RiskRejected{Check: "max_single_loss_pct", Detail: detail}
	}

	if h.breached {
		return CheckResult{Name: "breach_latch", Passed: false, Detail: h.breachMsg},
			&errs.BreachLatched{Reason: h.breachMsg}
	}

	return CheckResult{Name: "pre_trade", Passed: true}, nil
}

// RecordPnL updates running NAV with a realized delta and evaluates the
// daily drawdown fuse against the fixed day-start NAV snapshot:
// (nav-day_start_nav)/day_start_nav <= -max_daily_drawdown_pct trips the
// latch. Once tripped, the breach stays latched until Reset.
func (h *HardLimits) RecordPnL(deltaUSD float64) {
	h.nav += deltaUSD
	if h.breached || h.dayStartNAV == 0 {
		return
	}

	ret := (h.nav - h.dayStartNAV) / h.dayStartNAV
	if ret <= -h.limits.MaxDailyDrawdownPct {
		h.breached = true
		h.breachMsg = fmt.Sprintf("daily drawdown %.2f%% breached max_daily_drawdown_pct %.2f%% (day_start=%.2f nav=%.2f)",
			-ret*100, h.limits.MaxDailyDrawdownPct*100, h.dayStartNAV, h.nav)
	}
}

// NAV returns the current running net asset value.
func (h *HardLimits) NAV() float64 { return h.nav }

// Breached reports whether the drawdown fuse has tripped.
func (h *HardLimits) Breached() bool { return h.breached }

// Reset clears the breach latch and re-seeds the day-start NAV snapshot at
// the current NAV, to be called at session boundaries (new trading day),
// never mid-session.
func (h *HardLimits) Reset() {
	h.breached = false
	h.breachMsg = ""
	h.dayStartNAV = h.nav
}

// EstimateTradeLossUSD estimates the worst-case realized loss for a trade of
// size at referencePrice (the SlippageEstimator's VWAP, not the raw mark) if
// the position reverses by reversalBps basis points.
func EstimateTradeLossUSD(referencePrice, size types.Decimal, reversalBps float64) float64 {
	notional, _ := referencePrice.Mul(size).Float64()
	return notional * reversalBps / 10000
}
