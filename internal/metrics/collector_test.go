package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

func recordTraded(c *Collector, symbol string, score, alpha float64) {
	c.RecordSignal(SignalRecord{
		Timestamp:  time.Unix(0, 0),
		Symbol:     symbol,
		Score:      score,
		Confidence: types.ConfidenceHigh,
		Alpha:      alpha,
		HasTrade:   true,
	})
}

func TestICUnavailableBelowMinSamples(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 5; i++ {
		recordTraded(c, "BTC-USD", float64(i), float64(i))
	}
	_, ok := c.InformationCoefficient()
	assert.False(t, ok)
}

func TestICPerfectPositiveCorrelation(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 20; i++ {
		recordTraded(c, "BTC-USD", float64(i), float64(i)*2)
	}
	ic, ok := c.InformationCoefficient()
	assert.True(t, ok)
	assert.InDelta(t, 1.0, ic, 1e-9)
}

func TestICPerfectNegativeCorrelation(t *testing.T) {
	c := NewCollector()
	for i := 0; i < 20; i++ {
		recordTraded(c, "BTC-USD", float64(i), -float64(i))
	}
	ic, ok := c.InformationCoefficient()
	assert.True(t, ok)
	assert.InDelta(t, -1.0, ic, 1e-9)
}

func TestAlphaPctExcludesUntradedSignals(t *testing.T) {
	c := NewCollector()
	recordTraded(c, "BTC-USD", 1, 10)
	recordTraded(c, "BTC-USD", 1, -5)
	c.RecordSignal(SignalRecord{Symbol: "BTC-USD", Score: 1, HasTrade: false})

	pct, ok := c.AlphaPct()
	assert.True(t, ok)
	assert.InDelta(t, 0.5, pct, 1e-9)
}

func TestResetClearsHistory(t *testing.T) {
	c := NewCollector()
	recordTraded(c, "BTC-USD", 1, 1)
	c.Reset()
	_, ok := c.InformationCoefficient()
	assert.False(t, ok)
}
