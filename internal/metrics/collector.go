// Package metrics implements the feedback loop's record store: a
// ring-buffered history of signal/execution pairs and the Spearman rank
// information coefficient computed over it.
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// SignalRecord pairs a classified signal with the trade outcome it led to
// (if any), so the IC calculator can later compare predicted direction
// against realized alpha.
type SignalRecord struct {
	Timestamp  time.Time
	Symbol     string
	Score      float64
	Confidence types.Confidence
	Alpha      float64 // realized USD alpha attributed to the resulting trade, 0 if none
	HasTrade   bool
}

// ExecutionRecord is one completed order's outcome, kept for the maker
// fill-rate monitor and venue health telemetry.
type ExecutionRecord struct {
	Timestamp  time.Time
	Symbol     string
	OrderType  types.OrderType
	Confidence types.Confidence
	Filled     bool
	LatencyMs  float64
	SlippageBps float64
}

// ring is a fixed-capacity circular buffer of SignalRecord.
type ring struct {
	buf      []SignalRecord
	capacity int
	pos      int
	full     bool
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]SignalRecord, capacity), capacity: capacity}
}

func (r *ring) push(rec SignalRecord) {
	r.buf[r.pos] = rec
	r.pos = (r.pos + 1) % r.capacity
	if r.pos == 0 {
		r.full = true
	}
}

func (r *ring) len() int {
	if r.full {
		return r.capacity
	}
	return r.pos
}

// snapshot returns the records in insertion order, oldest first.
func (r *ring) snapshot() []SignalRecord {
	n := r.len()
	out := make([]SignalRecord, n)
	if !r.full {
		copy(out, r.buf[:n])
		return out
	}
	copy(out, r.buf[r.pos:])
	copy(out[r.capacity-r.pos:], r.buf[:r.pos])
	return out
}

// Collector accumulates signal and execution history and derives the
// metrics the analytics feedback loop depends on: the information
// coefficient, the realized-alpha share, and its short/long-window decay.
type Collector struct {
	mu sync.RWMutex

	signals    map[string]*ring // per-symbol, capacity icWindowSize
	executions []ExecutionRecord

	icWindowSize    int
	shortWindowSize int
	minSamples      int
}

const (
	defaultICWindow    = 500
	defaultShortWindow = 50
	defaultMinSamples  = 10
)

// NewCollector builds a Collector with the default window sizes.
func NewCollector() *Collector {
	return &Collector{
		signals:         make(map[string]*ring),
		icWindowSize:    defaultICWindow,
		shortWindowSize: defaultShortWindow,
		minSamples:      defaultMinSamples,
	}
}

// RecordSignal stores one classified signal, with its eventual trade alpha
// attached once known (callers append a zero-alpha record first, then call
// AttachAlpha once the trade closes; a signal that never trades stays at
// HasTrade=false and is excluded from the IC computation).
func (c *Collector) RecordSignal(rec SignalRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.signals[rec.Symbol]
	if !ok {
		r = newRing(c.icWindowSize)
		c.signals[rec.Symbol] = r
	}
	r.push(rec)
}

// AttachAlpha finds the most recent signal recorded for symbol at signalTime
// and attaches the trade's realized alpha to it, marking it traded so it
// joins the IC/AlphaPct computation. Returns false if no matching record is
// found (the signal ring for that symbol has since wrapped past it).
func (c *Collector) AttachAlpha(symbol string, signalTime time.Time, alpha float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.signals[symbol]
	if !ok {
		return false
	}
	for i := 0; i < r.len(); i++ {
		idx := (r.pos - 1 - i + r.capacity) % r.capacity
		if r.buf[idx].Timestamp.Equal(signalTime) {
			r.buf[idx].Alpha = alpha
			r.buf[idx].HasTrade = true
			return true
		}
	}
	return false
}

// RecordExecution stores one completed order's outcome.
func (c *Collector) RecordExecution(rec ExecutionRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.executions = append(c.executions, rec)
	if len(c.executions) > c.icWindowSize {
		c.executions = c.executions[len(c.executions)-c.icWindowSize:]
	}
}

// allTraded returns every stored signal with HasTrade=true across all
// symbols, oldest first, for the global IC computation.
func (c *Collector) allTraded() []SignalRecord {
	var out []SignalRecord
	for _, r := range c.signals {
		for _, rec := range r.snapshot() {
			if rec.HasTrade {
				out = append(out, rec)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// InformationCoefficient computes the Spearman rank correlation between
// signal score and realized alpha over the trailing window. ok is false
// when fewer than minSamples traded signals are available, matching the
// AlphaHealthChecker's ICAvailable gate.
func (c *Collector) InformationCoefficient() (ic float64, ok bool) {
	c.mu.RLock()
	recs := c.allTraded()
	c.mu.RUnlock()

	if len(recs) < c.minSamples {
		return 0, false
	}
	scores := make([]float64, len(recs))
	alphas := make([]float64, len(recs))
	for i, r := range recs {
		scores[i] = r.Score
		alphas[i] = r.Alpha
	}
	return spearman(scores, alphas), true
}

// ICDecay compares the short-window IC (most recent shortWindowSize traded
// signals) against the full-window IC, returning the fractional decline:
// positive means the short-window IC is weaker than the long-window one.
func (c *Collector) ICDecay() (decayPct float64, ok bool) {
	c.mu.RLock()
	recs := c.allTraded()
	c.mu.RUnlock()

	if len(recs) < c.minSamples {
		return 0, false
	}
	longIC := spearman(scoresOf(recs), alphasOf(recs))

	shortRecs := recs
	if len(recs) > c.shortWindowSize {
		shortRecs = recs[len(recs)-c.shortWindowSize:]
	}
	if len(shortRecs) < c.minSamples {
		return 0, false
	}
	shortIC := spearman(scoresOf(shortRecs), alphasOf(shortRecs))

	if longIC == 0 {
		return 0, true
	}
	decay := (longIC - shortIC) / math.Abs(longIC)
	return decay, true
}

// AlphaPct returns the fraction of traded signals with positive realized
// alpha over the trailing window.
func (c *Collector) AlphaPct() (pct float64, ok bool) {
	c.mu.RLock()
	recs := c.allTraded()
	c.mu.RUnlock()

	if len(recs) == 0 {
		return 0, false
	}
	positive := 0
	for _, r := range recs {
		if r.Alpha > 0 {
			positive++
		}
	}
	return float64(positive) / float64(len(recs)), true
}

func scoresOf(recs []SignalRecord) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = r.Score
	}
	return out
}

func alphasOf(recs []SignalRecord) []float64 {
	out := make([]float64, len(recs))
	for i, r := range recs {
		out[i] = r.Alpha
	}
	return out
}

// spearman computes the Spearman rank correlation coefficient between two
// equal-length series. Ties are broken by average rank.
func spearman(x, y []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	rx := rank(x)
	ry := rank(y)

	var sumSq float64
	for i := 0; i < n; i++ {
		d := rx[i] - ry[i]
		sumSq += d * d
	}
	nf := float64(n)
	denom := nf * (nf*nf - 1)
	if denom == 0 {
		return 0
	}
	return 1 - (6*sumSq)/denom
}

// rank returns the average rank (1-indexed) of each element of v.
func rank(v []float64) []float64 {
	n := len(v)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	// simple insertion sort by value, stable enough for typical sample sizes
	for i := 1; i < n; i++ {
		j := i
		for j > 0 && v[idx[j-1]] > v[idx[j]] {
			idx[j-1], idx[j] = idx[j], idx[j-1]
			j--
		}
	}
	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j < n && v[idx[j]] == v[idx[i]] {
			j++
		}
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			ranks[idx[k]] = avgRank
		}
		i = j
	}
	return ranks
}

// Reset clears all stored history. Used in tests and on engine restart.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signals = make(map[string]*ring)
	c.executions = nil
}
