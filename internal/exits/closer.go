package exits

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/cryptorun-execcore/internal/risk"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// MarkPriceFunc resolves the current mark price for a symbol, normally the
// market data mid price at the time of the sweep.
type MarkPriceFunc func(symbol string) (types.Decimal, bool)

// Flattener submits the order that closes a position; the engine wires this
// to its execution router's IOC path since an exit needs to complete within
// the tick, not rest as a maker order.
type Flattener func(ctx context.Context, symbol string, side types.Side, size types.Decimal) error

// PositionCloser runs the TPSLManager over every open position ahead of the
// tick's open-side signal logic, so exit orders are submitted before any new
// entry order of the same tick. It does not stop a symbol it just flattened
// from receiving a new entry later in that tick.
type PositionCloser struct {
	tpsl      *TPSLManager
	positions *risk.PositionManager
	mark      MarkPriceFunc
	flatten   Flattener
	log       zerolog.Logger

	takeProfitBps float64
	stopLossBps   float64
	maxAge        time.Duration
}

// NewPositionCloser builds a PositionCloser wired to the engine's position
// book, mark-price source, and order flattening path.
func NewPositionCloser(positions *risk.PositionManager, mark MarkPriceFunc, flatten Flattener, log zerolog.Logger, takeProfitBps, stopLossBps float64, maxAge time.Duration) *PositionCloser {
	return &PositionCloser{
		tpsl:          NewTPSLManager(),
		positions:     positions,
		mark:          mark,
		flatten:       flatten,
		log:           log,
		takeProfitBps: takeProfitBps,
		stopLossBps:   stopLossBps,
		maxAge:        maxAge,
	}
}

// Sweep evaluates every open position and flattens any that trigger an
// exit, returning the results for every position actually evaluated (mark
// price unavailable skips a symbol rather than failing the whole sweep).
func (c *PositionCloser) Sweep(ctx context.Context, now time.Time) []*ExitResult {
	var results []*ExitResult

	for _, pos := range c.positions.All() {
		mark, ok := c.mark(pos.Symbol)
		if !ok {
			continue
		}

		result, err := c.tpsl.Evaluate(ctx, ExitInputs{
			Symbol:        pos.Symbol,
			Side:          pos.Side(),
			EntryPrice:    pos.AvgEntry,
			CurrentPrice:  mark,
			OpenedAt:      pos.OpenedAt,
			Now:           now,
			TakeProfitBps: c.takeProfitBps,
			StopLossBps:   c.stopLossBps,
			MaxAge:        c.maxAge,
		})
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", pos.Symbol).Msg("exit evaluation failed")
			continue
		}
		results = append(results, result)

		if !result.ShouldExit {
			continue
		}

		closingSide := pos.Side().Opposite()
		size := pos.Size.Abs()

		if err := c.flatten(ctx, pos.Symbol, closingSide, size); err != nil {
			c.log.Warn().Err(err).Str("symbol", pos.Symbol).Str("reason", result.Reason.String()).Msg("position flatten failed")
			continue
		}

		c.log.Info().
			Str("symbol", pos.Symbol).
			Str("reason", result.Reason.String()).
			Float64("pnl_bps", result.PnLBps).
			Msg("position closed")
	}

	return results
}
