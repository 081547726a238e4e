package signals

import (
	"math"
	"sort"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// Classifier assigns a confidence tier to a composite score, either against
// fixed thresholds or against thresholds calibrated from the recent history
// of |score| magnitudes.
type Classifier struct {
	Calibrated        bool
	Theta1            float64 // fixed-mode HIGH threshold
	Theta2            float64 // fixed-mode MEDIUM threshold
	PHigh             float64 // calibrated-mode top quantile for HIGH, default 0.10
	PMedium           float64 // calibrated-mode top quantile for MEDIUM, default 0.30
	MinSamples        int     // calibrated mode needs at least this many magnitudes
	history           []float64
}

// NewClassifier builds a Classifier. In fixed mode theta1/theta2 gate
// directly; in calibrated mode theta1/theta2 are only the fallback used
// until MinSamples magnitudes have been observed.
func NewClassifier(calibrated bool, theta1, theta2, pHigh, pMedium float64, minSamples int) *Classifier {
	return &Classifier{
		Calibrated: calibrated,
		Theta1:     theta1,
		Theta2:     theta2,
		PHigh:      pHigh,
		PMedium:    pMedium,
		MinSamples: minSamples,
	}
}

// Observe records a score magnitude into the calibration history. Has no
// effect when the classifier is not in calibrated mode.
func (c *Classifier) Observe(score float64) {
	if !c.Calibrated {
		return
	}
	c.history = append(c.history, math.Abs(score))
}

// Classify returns the confidence tier for a composite score in [-1, 1].
// In calibrated mode with fewer than MinSamples observations, it falls back
// to the fixed thresholds — a calibration that hasn't seen enough data yet
// is not allowed to invent thresholds from noise.
func (c *Classifier) Classify(score float64) types.Confidence {
	mag := math.Abs(score)

	theta1, theta2 := c.Theta1, c.Theta2
	if c.Calibrated && len(c.history) >= c.MinSamples {
		theta1 = quantile(c.history, 1-c.PHigh)
		theta2 = quantile(c.history, 1-c.PMedium)
		if theta2 >= theta1 {
			// Calibration degenerated (e.g. too little spread in history);
			// keep the fixed thresholds rather than emit an inverted gate.
			theta1, theta2 = c.Theta1, c.Theta2
		}
	}

	switch {
	case mag >= theta1:
		return types.ConfidenceHigh
	case mag >= theta2:
		return types.ConfidenceMedium
	default:
		return types.ConfidenceLow
	}
}

// quantile returns the value at quantile q (0..1) of a copy of xs, using
// linear interpolation between closest ranks.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
