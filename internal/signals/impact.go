package signals

import (
	"time"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// Impact computes the aggressor-volume imbalance over the trailing window
// ending at `now`: (buyVolume - sellVolume) / (buyVolume + sellVolume),
// bounded to [-1, 1]. Trades outside the window, and trades with zero or
// negative size, are ignored. A window with no qualifying trades returns 0
// — no aggressor flow is not the same as balanced aggressor flow, but
// without samples there is nothing else to report.
func Impact(book types.MarketData, window time.Duration, now time.Time) float64 {
	cutoff := now.Add(-window)

	buyVol := 0.0
	sellVol := 0.0

	for _, t := range book.RecentTrades {
		if t.Time.Before(cutoff) || t.Time.After(now) {
			continue
		}
		size, _ := t.Size.Float64()
		if size <= 0 {
			continue
		}
		if t.Side == types.SideBuy {
			buyVol += size
		} else {
			sellVol += size
		}
	}

	total := buyVol + sellVol
	if total == 0 {
		return 0
	}

	return clamp((buyVol-sellVol)/total, -1, 1)
}
