package signals

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

func book(bidPrices, bidSizes, askPrices, askSizes []float64) types.MarketData {
	md := types.MarketData{Symbol: "BTC-USD", Venue: "test", Timestamp: time.Now()}
	for i := range bidPrices {
		md.Bids = append(md.Bids, types.Level{Price: types.D(bidPrices[i]), Size: types.D(bidSizes[i])})
	}
	for i := range askPrices {
		md.Asks = append(md.Asks, types.Level{Price: types.D(askPrices[i]), Size: types.D(askSizes[i])})
	}
	return md
}

func TestOBIBoundedAndSymmetric(t *testing.T) {
	bidHeavy := book([]float64{100, 99}, []float64{10, 5}, []float64{101, 102}, []float64{1, 1})
	askHeavy := book([]float64{100, 99}, []float64{1, 1}, []float64{101, 102}, []float64{10, 5})

	obiBid := OBI(bidHeavy, 2)
	obiAsk := OBI(askHeavy, 2)

	assert.Greater(t, obiBid, 0.0)
	assert.Less(t, obiAsk, 0.0)
	assert.InDelta(t, obiBid, -obiAsk, 1e-9)
	assert.LessOrEqual(t, obiBid, 1.0)
	assert.GreaterOrEqual(t, obiAsk, -1.0)
}

func TestOBIEmptyBookIsZero(t *testing.T) {
	empty := types.MarketData{}
	assert.Equal(t, 0.0, OBI(empty, 5))
}

func TestMicropriceLeansTowardThinnerSide(t *testing.T) {
	md := book([]float64{100}, []float64{10}, []float64{101}, []float64{1})
	v := Microprice(md, 10000)
	assert.Greater(t, v, 0.0)
	assert.LessOrEqual(t, v, 1.0)
}

func TestImpactIgnoresTradesOutsideWindow(t *testing.T) {
	now := time.Now()
	md := types.MarketData{RecentTrades: []types.Trade{
		{Size: types.D(5), Side: types.SideBuy, Time: now.Add(-time.Minute)},
		{Size: types.D(3), Side: types.SideSell, Time: now.Add(-time.Second)},
	}}
	v := Impact(md, 10*time.Second, now)
	assert.Equal(t, -1.0, v)
}

func TestAggregateDivisorUnchangedOnFailure(t *testing.T) {
	components := []Component{
		AsComponent("obi", 1, 1.0, nil),
		AsComponent("microprice", 1, 0, assertErr()),
	}
	score, failed := Aggregate(components)
	assert.Equal(t, []string{"microprice"}, failed)
	assert.InDelta(t, 0.5, score, 1e-9)
}

func assertErr() error { return assert.AnError }

func TestClassifierFixedThresholds(t *testing.T) {
	c := NewClassifier(false, 0.5, 0.2, 0.10, 0.30, 100)
	assert.Equal(t, types.ConfidenceHigh, c.Classify(0.6))
	assert.Equal(t, types.ConfidenceMedium, c.Classify(0.3))
	assert.Equal(t, types.ConfidenceLow, c.Classify(0.1))
}

func TestClassifierCalibratedFallsBackBeforeMinSamples(t *testing.T) {
	c := NewClassifier(true, 0.5, 0.2, 0.10, 0.30, 100)
	c.Observe(0.9)
	assert.Equal(t, types.ConfidenceHigh, c.Classify(0.6))
}

func TestDeduplicatorCooldownSuppresses(t *testing.T) {
	d := NewDeduplicator(5*time.Second, 0.05, 0.7, 3)
	now := time.Now()
	emit, _, _ := d.Evaluate("BTC-USD", 0.6, 1, now)
	assert.True(t, emit)

	emit, _, reason := d.Evaluate("BTC-USD", 0.65, 1, now.Add(time.Second))
	assert.False(t, emit)
	assert.Equal(t, "cooldown", reason)
}

func TestDeduplicatorMaxSameDirection(t *testing.T) {
	d := NewDeduplicator(0, 0, 1.0, 2)
	now := time.Now()
	d.Evaluate("ETH-USD", 0.9, 1, now)
	now = now.Add(time.Second)
	d.Evaluate("ETH-USD", 0.1, 1, now) // large enough delta to pass change-threshold
	now = now.Add(time.Second)
	emit, _, reason := d.Evaluate("ETH-USD", 0.05, 1, now)
	assert.False(t, emit)
	assert.Contains(t, reason, "max_same_direction")
}

func TestSlippageEstimateWalksBook(t *testing.T) {
	md := book([]float64{100}, []float64{5}, []float64{101, 102}, []float64{2, 10})
	est := EstimateSlippage(md, types.SideBuy, types.D(5))
	assert.False(t, est.DepthExhausted)
	assert.Greater(t, est.SlippageBps, 0.0)
}

func TestSlippageEstimateDepthExhausted(t *testing.T) {
	md := book([]float64{100}, []float64{5}, []float64{101}, []float64{1})
	est := EstimateSlippage(md, types.SideBuy, types.D(5))
	assert.True(t, est.DepthExhausted)
}
