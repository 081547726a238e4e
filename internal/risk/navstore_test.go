package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHardLimitsRestoreAppliesSnapshot(t *testing.T) {
	h := NewHardLimits(Limits{
		MaxPositionUSD:      10000,
		MaxSingleLossPct:    0.01,
		MaxDailyDrawdownPct: 0.05,
		InitialNAV:          10000,
	})

	h.Restore(NAVSnapshot{NAV: 9400, DayStartNAV: 10000, Breached: true, BreachMsg: "daily drawdown 6.00% breached max_daily_drawdown_pct 5.00%"})

	assert.Equal(t, 9400.0, h.NAV())
	assert.True(t, h.Breached())
}

func TestNAVSnapshotRoundTripsThroughRestore(t *testing.T) {
	h := NewHardLimits(Limits{
		MaxPositionUSD:      10000,
		MaxSingleLossPct:    0.01,
		MaxDailyDrawdownPct: 0.05,
		InitialNAV:          10000,
	})
	h.RecordPnL(-150)

	snap := NAVSnapshot{NAV: h.NAV(), DayStartNAV: h.dayStartNAV, Breached: h.Breached()}
	restored := NewHardLimits(Limits{
		MaxPositionUSD:      10000,
		MaxSingleLossPct:    0.01,
		MaxDailyDrawdownPct: 0.05,
		InitialNAV:          10000,
	})
	restored.Restore(snap)

	assert.Equal(t, h.NAV(), restored.NAV())
	assert.Equal(t, h.Breached(), restored.Breached())
}
