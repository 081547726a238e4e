package analytics

import "github.com/sawpanic/cryptorun-execcore/internal/types"

// CostAdvisory is the AdaptiveCostEstimator's output for a candidate trade:
// a multiplier to apply to the baseline slippage estimate, plus advisory
// flags the execution router can act on.
type CostAdvisory struct {
	Multiplier       float64
	RecommendIOC     bool
	RecommendReduceSize bool
}

// stateMultiplier is the regime-conditioned cost multiplier: calm NORMAL
// conditions cost baseline, HIGH_VOL raises it by half, LOW_LIQ is
// the worst of the four since depth itself is thin, and CHOPPY sits between
// NORMAL and HIGH_VOL since the cost driver there is noise, not true
// illiquidity or volatility.
func stateMultiplier(state types.MarketState) float64 {
	switch state {
	case types.MarketStateNormal:
		return 1.0
	case types.MarketStateHighVol:
		return 1.5
	case types.MarketStateLowLiq:
		return 2.0
	case types.MarketStateChoppy:
		return 1.3
	default:
		return 1.0
	}
}

// Estimate produces a CostAdvisory for the given market state. LOW_LIQ and
// HIGH_VOL both recommend falling back to IOC sooner (maker orders rest too
// long in those conditions to be worth the rebate); LOW_LIQ additionally
// recommends reducing order size since the book itself cannot absorb the
// full size without excess impact.
func Estimate(state types.MarketState) CostAdvisory {
	return CostAdvisory{
		Multiplier:          stateMultiplier(state),
		RecommendIOC:        state == types.MarketStateHighVol || state == types.MarketStateLowLiq,
		RecommendReduceSize: state == types.MarketStateLowLiq,
	}
}
