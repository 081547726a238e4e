package analytics

import "github.com/sawpanic/cryptorun-execcore/internal/types"

// HealthThresholds are the fixed cut points the AlphaHealthChecker
// evaluates against.
type HealthThresholds struct {
	HealthyIC           float64
	DegradingIC         float64
	HealthyAlphaPct     float64
	DegradingAlphaPct   float64
	HealthyDecayPct     float64
	DegradingDecayPct   float64
	MinSamples          int
	MaxLossesDegrading  int
	MaxLossesFailed     int
	LowLiqDurationSecs  float64
}

// DefaultHealthThresholds mirrors the values this checker was validated
// against.
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		HealthyIC:          0.03,
		DegradingIC:        0.01,
		HealthyAlphaPct:    0.70,
		DegradingAlphaPct:  0.50,
		HealthyDecayPct:    0.20,
		DegradingDecayPct:  0.50,
		MinSamples:         10,
		MaxLossesDegrading: 3,
		MaxLossesFailed:    5,
		LowLiqDurationSecs: 1800,
	}
}

// HealthInputs is the rolling state the checker needs for one evaluation.
type HealthInputs struct {
	IC                  float64
	ICAvailable         bool
	ICDecayPct          float64 // fraction decline of short-window IC vs long-window IC
	AlphaPct            float64 // fraction of trades with a positive Alpha attribution
	AlphaPctAvailable   bool    // false until at least one traded signal has an attributed alpha
	ConsecutiveLosses   int
	LowLiqDurationSecs  float64
	CurrentState        types.MarketState
}

// HealthVerdict is the checker's output: a priority-ordered status plus the
// recommended size factor and theta adjustment to apply while that status
// holds.
type HealthVerdict struct {
	Status         types.HealthStatus
	StopTrading    bool
	SizeFactor     float64
	ThetaAdjustment float64
	Reasons        []string
}

// Evaluate classifies FAILED, then DEGRADING, then HEALTHY — the first
// matching tier wins, so a FAILED-level signal is never downgraded just
// because a DEGRADING-level one also matched.
func Evaluate(in HealthInputs, th HealthThresholds) HealthVerdict {
	var reasons []string

	failed := false
	if in.ConsecutiveLosses >= th.MaxLossesFailed {
		failed = true
		reasons = append(reasons, "consecutive_losses_at_failed_threshold")
	}
	if in.ICAvailable && in.IC < 0 {
		failed = true
		reasons = append(reasons, "ic_negative")
	}
	if in.ICAvailable && in.IC < th.DegradingIC && in.AlphaPctAvailable && in.AlphaPct < th.DegradingAlphaPct {
		failed = true
		reasons = append(reasons, "ic_and_alpha_below_degrading_threshold")
	}

	if failed {
		return HealthVerdict{
			Status:          types.HealthFailed,
			StopTrading:     true,
			SizeFactor:      0.0,
			ThetaAdjustment: 0.2,
			Reasons:         reasons,
		}
	}

	degrading := false
	if in.ConsecutiveLosses >= th.MaxLossesDegrading {
		degrading = true
		reasons = append(reasons, "consecutive_losses_at_degrading_threshold")
	}
	if in.ICAvailable && in.IC < th.HealthyIC {
		degrading = true
		reasons = append(reasons, "ic_below_healthy_threshold")
	}
	if in.AlphaPctAvailable && in.AlphaPct < th.HealthyAlphaPct {
		degrading = true
		reasons = append(reasons, "alpha_pct_below_healthy_threshold")
	}
	if in.ICDecayPct > th.HealthyDecayPct {
		degrading = true
		reasons = append(reasons, "ic_decay_above_healthy_threshold")
	}
	if in.LowLiqDurationSecs >= th.LowLiqDurationSecs {
		degrading = true
		reasons = append(reasons, "sustained_low_liquidity")
	}

	if degrading {
		sizeFactor := 0.5
		if in.ICDecayPct > 0.30 {
			sizeFactor = 0.3
		}
		thetaAdj := 0.1
		if in.CurrentState == types.MarketStateLowLiq {
			thetaAdj = 0.15
		}
		return HealthVerdict{
			Status:          types.HealthDegrading,
			StopTrading:     false,
			SizeFactor:      sizeFactor,
			ThetaAdjustment: thetaAdj,
			Reasons:         reasons,
		}
	}

	return HealthVerdict{
		Status:          types.HealthHealthy,
		StopTrading:     false,
		SizeFactor:      1.0,
		ThetaAdjustment: 0,
	}
}
