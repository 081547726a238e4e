package regime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

func TestDetectorNormalWithStableCalmBook(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	for i := 0; i < 20; i++ {
		d.Observe("BTC-USD", Sample{MidPrice: 100, SpreadBps: 2, DepthUSD: 1_000_000, ADVUSD: 1_000_000})
	}
	det := d.Classify("BTC-USD")
	assert.Equal(t, types.MarketStateNormal, det.State)
}

func TestDetectorHighVolTakesPriority(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	price := 100.0
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			price *= 1.05
		} else {
			price *= 0.95
		}
		d.Observe("BTC-USD", Sample{MidPrice: price, SpreadBps: 20, DepthUSD: 10, ADVUSD: 1_000_000})
	}
	det := d.Classify("BTC-USD")
	assert.Equal(t, types.MarketStateHighVol, det.State)
}

func TestDetectorLowLiqWhenNotVolatile(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	for i := 0; i < 20; i++ {
		d.Observe("BTC-USD", Sample{MidPrice: 100, SpreadBps: 2, DepthUSD: 10, ADVUSD: 1_000_000})
	}
	det := d.Classify("BTC-USD")
	assert.Equal(t, types.MarketStateLowLiq, det.State)
}

func TestDetectorInsufficientSamplesDefaultsNormal(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	det := d.Classify("BTC-USD")
	assert.Equal(t, types.MarketStateNormal, det.State)
}
