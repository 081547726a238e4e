// Package regime implements MarketStateDetector, adapted from this
// codebase's regime-detection package — there a three-state CALM/NORMAL/
// VOLATILE breadth-and-volatility classifier for momentum scanning — down
// to the four-state, priority-ordered book-condition classifier the
// execution core needs: NORMAL, HIGH_VOL, LOW_LIQ, CHOPPY.
package regime

import (
	"math"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// Thresholds are the fixed cut points evaluated in priority order: the
// first condition that matches wins, so HIGH_VOL is checked before LOW_LIQ,
// and LOW_LIQ before CHOPPY.
type Thresholds struct {
	HighVolStdDev   float64 // mid-price return stddev above this -> HIGH_VOL
	LowLiqScore     float64 // liquidity score below this -> LOW_LIQ
	ChoppySpreadBps float64 // spread above this contributes to CHOPPY
	ChoppyReversals int     // reversal count at/above this -> CHOPPY
	Window          int     // rolling mid-price sample window
}

// DefaultThresholds mirrors the values this classifier was validated
// against: 2% volatility, 0.3 liquidity score, 15bps spread, 5 reversals,
// over a 20-sample window.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighVolStdDev:   0.02,
		LowLiqScore:     0.3,
		ChoppySpreadBps: 15,
		ChoppyReversals: 5,
		Window:          20,
	}
}

// Sample is one rolling observation of book conditions.
type Sample struct {
	MidPrice   float64
	SpreadBps  float64
	DepthUSD   float64
	ADVUSD     float64 // average daily volume in USD, for liquidity scoring
}

// Detector classifies MarketState from a rolling per-symbol window of
// Samples.
type Detector struct {
	thresholds Thresholds
	windows    map[string][]Sample
}

// NewDetector builds a Detector with the given thresholds.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds, windows: make(map[string][]Sample)}
}

// Observe appends a sample to the symbol's rolling window, trimming to the
// configured window size.
func (d *Detector) Observe(symbol string, s Sample) {
	w := append(d.windows[symbol], s)
	if len(w) > d.thresholds.Window {
		w = w[len(w)-d.thresholds.Window:]
	}
	d.windows[symbol] = w
}

// Detection is the classifier's verdict plus the metrics that produced it.
type Detection struct {
	State          types.MarketState
	Volatility     float64
	LiquidityScore float64
	SpreadBps      float64
	Reversals      int
}

// Classify evaluates the symbol's current window against the priority
// order NORMAL < HIGH_VOL < LOW_LIQ < CHOPPY, returning NORMAL with zeroed
// metrics if there are not yet enough samples to classify confidently.
func (d *Detector) Classify(symbol string) Detection {
	w := d.windows[symbol]
	if len(w) < 2 {
		return Detection{State: types.MarketStateNormal}
	}

	vol := volatility(w)
	liq := liquidityScore(w)
	spread := w[len(w)-1].SpreadBps
	reversals := countReversals(w)

	det := Detection{State: types.MarketStateNormal, Volatility: vol, LiquidityScore: liq, SpreadBps: spread, Reversals: reversals}

	switch {
	case vol > d.thresholds.HighVolStdDev:
		det.State = types.MarketStateHighVol
	case liq < d.thresholds.LowLiqScore:
		det.State = types.MarketStateLowLiq
	case spread > d.thresholds.ChoppySpreadBps || reversals >= d.thresholds.ChoppyReversals:
		det.State = types.MarketStateChoppy
	}

	return det
}

// volatility is the stddev of simple returns across the window.
func volatility(w []Sample) float64 {
	if len(w) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(w)-1)
	for i := 1; i < len(w); i++ {
		if w[i-1].MidPrice == 0 {
			continue
		}
		returns = append(returns, (w[i].MidPrice-w[i-1].MidPrice)/w[i-1].MidPrice)
	}
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}

// liquidityScore blends depth and turnover into a single [0,1]-ish score:
// depth relative to ADV, averaged across the window.
func liquidityScore(w []Sample) float64 {
	total := 0.0
	n := 0
	for _, s := range w {
		if s.ADVUSD <= 0 {
			continue
		}
		score := s.DepthUSD / s.ADVUSD
		if score > 1 {
			score = 1
		}
		total += score
		n++
	}
	if n == 0 {
		return 1
	}
	return total / float64(n)
}

// countReversals counts the number of direction changes in the mid-price
// series across the window.
func countReversals(w []Sample) int {
	if len(w) < 3 {
		return 0
	}
	count := 0
	prevDir := 0
	for i := 1; i < len(w); i++ {
		diff := w[i].MidPrice - w[i-1].MidPrice
		dir := 0
		switch {
		case diff > 0:
			dir = 1
		case diff < 0:
			dir = -1
		}
		if dir != 0 && prevDir != 0 && dir != prevDir {
			count++
		}
		if dir != 0 {
			prevDir = dir
		}
	}
	return count
}
