package analytics

import "github.com/sawpanic/cryptorun-execcore/internal/types"

// FillRateStatus is the MakerFillRateMonitor's per-tier verdict.
type FillRateStatus string

const (
	FillRateHealthy  FillRateStatus = "HEALTHY"
	FillRateWarn     FillRateStatus = "WARN"
	FillRateCritical FillRateStatus = "CRITICAL"
)

// fillRateWindow is a fixed-capacity ring buffer of fill/no-fill outcomes.
type fillRateWindow struct {
	outcomes []bool
	capacity int
	pos      int
	filled   bool
}

func newFillRateWindow(capacity int) *fillRateWindow {
	return &fillRateWindow{outcomes: make([]bool, capacity), capacity: capacity}
}

func (w *fillRateWindow) record(filled bool) {
	w.outcomes[w.pos] = filled
	w.pos = (w.pos + 1) % w.capacity
	if w.pos == 0 {
		w.filled = true
	}
}

func (w *fillRateWindow) sampleCount() int {
	if w.filled {
		return w.capacity
	}
	return w.pos
}

func (w *fillRateWindow) rate() float64 {
	n := w.sampleCount()
	if n == 0 {
		return 1.0
	}
	count := 0
	for i := 0; i < n; i++ {
		if w.outcomes[i] {
			count++
		}
	}
	return float64(count) / float64(n)
}

// MakerFillRateMonitor tracks the maker fill rate separately per confidence
// tier, since HIGH and MEDIUM signals carry different timeout budgets and
// are expected to fill at different rates.
type MakerFillRateMonitor struct {
	windows map[types.Confidence]*fillRateWindow

	warnHigh, warnMedium float64
	critical             float64
	minSamples           int
}

// NewMakerFillRateMonitor builds a monitor with the default thresholds:
// warn below 0.80 for HIGH, 0.75 for MEDIUM, critical below 0.60 for
// either tier, using a 100-sample rolling window per tier.
func NewMakerFillRateMonitor() *MakerFillRateMonitor {
	return &MakerFillRateMonitor{
		windows: map[types.Confidence]*fillRateWindow{
			types.ConfidenceHigh:   newFillRateWindow(100),
			types.ConfidenceMedium: newFillRateWindow(100),
		},
		warnHigh:   0.80,
		warnMedium: 0.75,
		critical:   0.60,
		minSamples: 10,
	}
}

// Record logs one maker order's outcome for its confidence tier.
func (m *MakerFillRateMonitor) Record(confidence types.Confidence, filled bool) {
	w, ok := m.windows[confidence]
	if !ok {
		return
	}
	w.record(filled)
}

// Status returns the current fill-rate status for a tier. Fewer than
// minSamples observations defaults to healthy — there isn't enough signal
// yet to call it anything else.
func (m *MakerFillRateMonitor) Status(confidence types.Confidence) (FillRateStatus, float64) {
	w, ok := m.windows[confidence]
	if !ok {
		return FillRateHealthy, 1.0
	}
	if w.sampleCount() < m.minSamples {
		return FillRateHealthy, w.rate()
	}

	rate := w.rate()
	warn := m.warnMedium
	if confidence == types.ConfidenceHigh {
		warn = m.warnHigh
	}

	switch {
	case rate < m.critical:
		return FillRateCritical, rate
	case rate < warn:
		return FillRateWarn, rate
	default:
		return FillRateHealthy, rate
	}
}
