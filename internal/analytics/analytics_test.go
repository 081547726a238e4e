package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

func TestAttributeMakerRebateIsPositive(t *testing.T) {
	a := Attribute(types.OrderTypeMaker, types.SideBuy,
		types.D(100), types.D(100), types.D(100), types.D(10), 0, 0.01,
		FeeRates{MakerFeeRate: -0.0001, TakerFeeRate: 0.0005})
	assert.Greater(t, a.Rebate, 0.0)
	assert.Equal(t, 0.0, a.Fee)
}

func TestAttributeTakerFeeIsNegative(t *testing.T) {
	a := Attribute(types.OrderTypeIOC, types.SideBuy,
		types.D(100), types.D(100), types.D(100), types.D(10), 0, 0.01,
		FeeRates{MakerFeeRate: -0.0001, TakerFeeRate: 0.0005})
	assert.Less(t, a.Fee, 0.0)
}

func TestAttributeSlippageCostWhenFillWorseThanDecision(t *testing.T) {
	a := Attribute(types.OrderTypeIOC, types.SideBuy,
		types.D(100), types.D(100.5), types.D(100.5), types.D(10), 0, 0.01,
		FeeRates{})
	assert.Less(t, a.Slippage, 0.0)
}

func TestAttributeAlphaScalesWithSignalAndVolProxy(t *testing.T) {
	a := Attribute(types.OrderTypeMaker, types.SideBuy,
		types.D(100), types.D(100), types.D(100), types.D(10), 0.5, 0.01,
		FeeRates{})
	assert.InDelta(t, 5.0, a.Alpha, 1e-9) // 0.5 * (100*0.01) * 10
}

func TestAdaptiveCostMultiplierOrdering(t *testing.T) {
	assert.Equal(t, 1.0, Estimate(types.MarketStateNormal).Multiplier)
	assert.Equal(t, 2.0, Estimate(types.MarketStateLowLiq).Multiplier)
	assert.True(t, Estimate(types.MarketStateLowLiq).RecommendReduceSize)
	assert.True(t, Estimate(types.MarketStateHighVol).RecommendIOC)
	assert.False(t, Estimate(types.MarketStateNormal).RecommendIOC)
}

func TestHealthFailedTakesPriorityOverDegrading(t *testing.T) {
	v := Evaluate(HealthInputs{
		ICAvailable:       true,
		IC:                -0.1,
		AlphaPct:          0.9,
		ConsecutiveLosses: 1,
	}, DefaultHealthThresholds())
	assert.Equal(t, types.HealthFailed, v.Status)
	assert.True(t, v.StopTrading)
	assert.Equal(t, 0.0, v.SizeFactor)
}

func TestHealthHealthyByDefault(t *testing.T) {
	v := Evaluate(HealthInputs{
		ICAvailable: true,
		IC:          0.05,
		AlphaPct:    0.8,
	}, DefaultHealthThresholds())
	assert.Equal(t, types.HealthHealthy, v.Status)
	assert.Equal(t, 1.0, v.SizeFactor)
}

func TestFillRateMonitorHealthyBeforeMinSamples(t *testing.T) {
	m := NewMakerFillRateMonitor()
	for i := 0; i < 5; i++ {
		m.Record(types.ConfidenceHigh, false)
	}
	status, _ := m.Status(types.ConfidenceHigh)
	assert.Equal(t, FillRateHealthy, status)
}

func TestFillRateMonitorCriticalBelowThreshold(t *testing.T) {
	m := NewMakerFillRateMonitor()
	for i := 0; i < 100; i++ {
		m.Record(types.ConfidenceHigh, i < 50) // 50% fill rate
	}
	status, rate := m.Status(types.ConfidenceHigh)
	assert.Equal(t, FillRateCritical, status)
	assert.InDelta(t, 0.5, rate, 1e-9)
}
