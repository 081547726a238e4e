// Package engine orchestrates the execution core's cooperative, single-
// threaded tick loop: poll market data, sweep open positions for exits,
// run the signal pipeline per symbol, and route decisions. Alpha health is
// evaluated once for every signal that reaches routing; there is no
// separate timed health sweep. This mirrors the teacher's cobra-driven,
// single-goroutine command loop rather than a worker-pool fan-out, since
// every tick's work is small and strictly ordered.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/cryptorun-execcore/internal/analytics"
	"github.com/sawpanic/cryptorun-execcore/internal/config"
	"github.com/sawpanic/cryptorun-execcore/internal/execution"
	"github.com/sawpanic/cryptorun-execcore/internal/exits"
	"github.com/sawpanic/cryptorun-execcore/internal/metrics"
	"github.com/sawpanic/cryptorun-execcore/internal/persistence"
	"github.com/sawpanic/cryptorun-execcore/internal/regime"
	"github.com/sawpanic/cryptorun-execcore/internal/risk"
	"github.com/sawpanic/cryptorun-execcore/internal/signals"
	"github.com/sawpanic/cryptorun-execcore/internal/telemetry/latency"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// MarketDataSource fetches the current order book snapshot for a symbol.
type MarketDataSource interface {
	FetchMarketData(ctx context.Context, symbol string) (*types.MarketData, error)
}

// Engine wires every component of the execution core into one tick loop.
type Engine struct {
	settings config.Settings
	symbols  []string

	source MarketDataSource
	router *execution.Router

	hardLimits   *risk.HardLimits
	positions    *risk.PositionManager
	closer       *exits.PositionCloser
	detector     *regime.Detector
	costEstimator func(types.MarketState) analytics.CostAdvisory
	healthChecker func(analytics.HealthInputs, analytics.HealthThresholds) analytics.HealthVerdict
	fillMonitor  *analytics.MakerFillRateMonitor
	collector    *metrics.Collector
	feeRates     analytics.FeeRates

	executions persistence.ExecutionsRepo
	regimes    persistence.RegimeRepo
	persistTimeout time.Duration

	aggregatorTheta1, aggregatorTheta2 float64
	classifier *signals.Classifier
	dedup      *signals.Deduplicator

	lastMark map[string]types.Decimal

	log zerolog.Logger

	tickInterval time.Duration
}

// New builds an Engine from settings and its wired dependencies. symbols is
// the static universe the engine trades; source and router are the venue
// boundary the engine drives every tick.
func New(settings config.Settings, symbols []string, source MarketDataSource, router *execution.Router, log zerolog.Logger) *Engine {
	hardLimits := risk.NewHardLimits(risk.Limits{
		MaxPositionUSD:      settings.Risk.MaxPositionUSD,
		MaxSingleLossPct:    settings.Risk.MaxSingleLossPct,
		MaxDailyDrawdownPct: settings.Risk.MaxDailyDrawdownPct,
		InitialNAV:          settings.Risk.InitialNAV,
	})
	positions := risk.NewPositionManager()

	e := &Engine{
		settings:     settings,
		symbols:      symbols,
		source:       source,
		router:       router,
		hardLimits:   hardLimits,
		positions:    positions,
		detector:     regime.NewDetector(regime.DefaultThresholds()),
		costEstimator: analytics.Estimate,
		healthChecker: analytics.Evaluate,
		fillMonitor:  analytics.NewMakerFillRateMonitor(),
		collector:    metrics.NewCollector(),
		feeRates: analytics.FeeRates{
			MakerFeeRate: settings.Execution.MakerFeeRate,
			TakerFeeRate: settings.Execution.TakerFeeRate,
		},
		classifier: signals.NewClassifier(
			settings.Signals.ClassifierCalibrated,
			settings.Signals.Theta1, settings.Signals.Theta2,
			settings.Signals.CalibrationPHigh, settings.Signals.CalibrationPMedium,
			settings.Signals.MinCalibrationSamples,
		),
		dedup: signals.NewDeduplicator(
			settings.Signals.DedupCooldown,
			settings.Signals.DedupChangeThreshold,
			settings.Signals.DedupDecayGamma,
			settings.Signals.DedupMaxSameDirection,
		),
		lastMark: make(map[string]types.Decimal),
		log:      log,

		tickInterval:   100 * time.Millisecond,
		persistTimeout: 2 * time.Second,
	}

	flatten := func(ctx context.Context, symbol string, side types.Side, size types.Decimal) error {
		mark := e.lastMark[symbol]
		d := execution.Decision{
			Symbol:     symbol,
			Side:       side,
			Size:       size,
			WorstPrice: mark,
			Confidence: types.ConfidenceLow, // LOW routes straight to IOC: exits never rest as maker orders
		}
		// An exit has no originating signal to attribute alpha against;
		// mark is used as both the reference mid and the best-opposite price,
		// and the zero signal time means AttachAlpha never matches a record.
		_, err := e.router.Route(ctx, d, e.makeFillHandler(time.Time{}, mark, mark, 0))
		return err
	}
	markFn := func(symbol string) (types.Decimal, bool) {
		mark, ok := e.lastMark[symbol]
		return mark, ok
	}
	e.closer = exits.NewPositionCloser(positions, markFn, flatten, log,
		settings.Execution.TakeProfitBps, settings.Execution.StopLossBps, settings.Execution.MaxAge)

	return e
}

// HardLimits exposes the engine's risk gate so callers can persist or
// restore its running NAV/breach state across process restarts.
func (e *Engine) HardLimits() *risk.HardLimits {
	return e.hardLimits
}

// SetExecutionsRepo wires durable storage for completed orders. Optional:
// when unset, executions are tracked only in the in-memory metrics
// collector for the life of the process.
func (e *Engine) SetExecutionsRepo(repo persistence.ExecutionsRepo) {
	e.executions = repo
}

// SetRegimeRepo wires durable storage for market-state classifications.
// Optional: when unset, regime history does not survive a restart.
func (e *Engine) SetRegimeRepo(repo persistence.RegimeRepo) {
	e.regimes = repo
}

func (e *Engine) persistExecution(rec persistence.ExecutionRecord) {
	if e.executions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.persistTimeout)
	go func() {
		defer cancel()
		if err := e.executions.Insert(ctx, rec); err != nil {
			e.log.Warn().Err(err).Str("order_id", rec.OrderID).Msg("failed to persist execution record")
		}
	}()
}

func (e *Engine) persistRegime(snap persistence.RegimeSnapshot) {
	if e.regimes == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.persistTimeout)
	go func() {
		defer cancel()
		if err := e.regimes.Upsert(ctx, snap); err != nil {
			e.log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("failed to persist regime snapshot")
		}
	}()
}

// makeFillHandler builds the execution.FillCallback for one routed decision,
// closing over the context PnLAttribution needs (the signal's timestamp, for
// attaching realized alpha back to the originating SignalRecord; the mid
// price at signal time; the best opposite-side price at submission; and the
// signal's score). The FillCallback signature itself carries only the order
// and fill, so this context has to travel through the closure rather than
// the callback's arguments.
func (e *Engine) makeFillHandler(signalTime time.Time, referenceMid, bestOpposite types.Decimal, signalValue float64) execution.FillCallback {
	return func(order *types.Order, qty, price types.Decimal, now time.Time) {
		signedQty := qty
		if order.Side == types.SideSell {
			signedQty = qty.Neg()
		}
		realized := e.positions.ApplyFill(order.Symbol, signedQty, price, now)
		realizedF, _ := realized.Float64()
		e.hardLimits.RecordPnL(realizedF)

		if order.Type == types.OrderTypeMaker {
			e.fillMonitor.Record(order.Confidence, order.Status.Terminal() && order.FilledQty.Sign() > 0)
		}

		attribution := analytics.Attribute(order.Type, order.Side, referenceMid, price, bestOpposite, qty,
			signalValue, e.settings.Execution.VolProxyPct, e.feeRates)
		e.collector.AttachAlpha(order.Symbol, signalTime, attribution.Alpha)

		e.collector.RecordExecution(metrics.ExecutionRecord{
			Timestamp:  now,
			Symbol:     order.Symbol,
			OrderType:  order.Type,
			Confidence: order.Confidence,
			Filled:     order.FilledQty.Sign() > 0,
		})

		priceF, _ := price.Float64()
		qtyF, _ := qty.Float64()
		refF, _ := referenceMid.Float64()
		dirSign := 1.0
		if order.Side == types.SideSell {
			dirSign = -1.0
		}
		var slippageBps float64
		if refF > 0 {
			slippageBps = (priceF - refF) / refF * 10000 * dirSign
		}

		e.persistExecution(persistence.ExecutionRecord{
			Timestamp:   now,
			Symbol:      order.Symbol,
			Venue:       e.settings.Venue.Name,
			Side:        string(order.Side),
			OrderType:   order.Type.String(),
			Confidence:  order.Confidence.String(),
			Price:       priceF,
			Qty:         qtyF,
			OrderID:     order.ID,
			SignalScore: signalValue,
			SlippageBps: slippageBps,
			Alpha:       attribution.Alpha,
			Fee:         attribution.Fee,
			Rebate:      attribution.Rebate,
			Slippage:    attribution.Slippage,
			Impact:      attribution.Impact,
			Total:       attribution.Total,
		})
	}
}

// Tick runs one full cycle: poll market data for every symbol, sweep open
// positions for exits, then run the signal pipeline and route any emitted
// decision, for every symbol in turn.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	dataTimer := latency.StartTimer(latency.StageMarketData)
	books := make(map[string]*types.MarketData, len(e.symbols))
	for _, symbol := range e.symbols {
		book, err := e.source.FetchMarketData(ctx, symbol)
		if err != nil {
			e.log.Warn().Str("symbol", symbol).Err(err).Msg("market data fetch failed, skipping symbol this tick")
			continue
		}
		if err := book.Validate(); err != nil {
			e.log.Warn().Str("symbol", symbol).Err(err).Msg("market data failed validation, skipping symbol this tick")
			continue
		}
		books[symbol] = book
		e.lastMark[symbol] = book.MidPrice()
	}
	dataTimer.Stop()

	if e.hardLimits.Breached() {
		e.log.Error().Msg("daily drawdown breach latched, closing positions only")
		e.closer.Sweep(ctx, now)
		return
	}

	e.closer.Sweep(ctx, now)

	for symbol, book := range books {
		e.processSymbol(ctx, symbol, *book, now)
	}
}

func (e *Engine) processSymbol(ctx context.Context, symbol string, book types.MarketData, now time.Time) {
	signalTimer := latency.StartTimer(latency.StageSignal)
	e.detector.Observe(symbol, regime.Sample{
		MidPrice:  midFloat(book),
		SpreadBps: book.SpreadBps(),
		DepthUSD:  depthUSD(book),
		ADVUSD:    depthUSD(book) * 50, // placeholder scale until a real ADV feed is wired
	})
	detection := e.detector.Classify(symbol)
	e.persistRegime(persistence.RegimeSnapshot{
		Timestamp:      now,
		Symbol:         symbol,
		State:          string(detection.State),
		Volatility:     detection.Volatility,
		LiquidityScore: detection.LiquidityScore,
		SpreadBps:      detection.SpreadBps,
		Reversals:      detection.Reversals,
	})

	obi := signals.OBI(book, e.settings.Signals.OBILevels)
	micro := signals.Microprice(book, e.settings.Signals.MicropriceScale)
	impact := signals.Impact(book, e.settings.Signals.ImpactWindow, now)

	score, failed := signals.Aggregate([]signals.Component{
		{Name: "obi", Value: obi, Weight: e.settings.Signals.OBIWeight},
		{Name: "microprice", Value: micro, Weight: e.settings.Signals.MicropriceWeight},
		{Name: "impact", Value: impact, Weight: e.settings.Signals.ImpactWeight},
	})
	if len(failed) > 0 {
		e.log.Debug().Str("symbol", symbol).Strs("failed_components", failed).Msg("signal component(s) failed")
	}

	e.classifier.Observe(score)
	confidence := e.classifier.Classify(score)
	if confidence == types.ConfidenceLow {
		signalTimer.Stop()
		return
	}

	positionSign := e.positions.Get(symbol).Size.Sign()
	emit, adjusted, reason := e.dedup.Evaluate(symbol, score, positionSign, now)
	if !emit {
		signalTimer.Stop()
		e.log.Debug().Str("symbol", symbol).Str("reason", reason).Msg("signal suppressed by deduplicator")
		return
	}
	signalTimer.Stop()

	ic, icOK := e.collector.InformationCoefficient()
	alphaPct, alphaPctOK := e.collector.AlphaPct()
	decayPct, _ := e.collector.ICDecay()
	health := e.healthChecker(analytics.HealthInputs{
		IC:                ic,
		ICAvailable:       icOK,
		ICDecayPct:        decayPct,
		AlphaPct:          alphaPct,
		AlphaPctAvailable: alphaPctOK,
		CurrentState:      detection.State,
	}, analytics.DefaultHealthThresholds())

	if health.StopTrading {
		e.log.Warn().Str("symbol", symbol).Msg("alpha health failed, trading halted for this signal")
		return
	}

	side := types.SideBuy
	if adjusted < 0 {
		side = types.SideSell
	}

	cost := e.costEstimator(detection.State)

	size := e.positionSize(book, health.SizeFactor, cost.RecommendReduceSize)
	if size.Sign() <= 0 {
		return
	}

	riskTimer := latency.StartTimer(latency.StageRisk)
	slip := signals.EstimateSlippage(book, side, size)
	if math.Abs(slip.SlippageBps) > e.settings.Execution.MaxSlippageBps {
		riskTimer.Stop()
		e.log.Info().Str("symbol", symbol).Float64("slippage_bps", slip.SlippageBps).Msg("order rejected, estimated slippage exceeds budget")
		return
	}

	existingSize := e.positions.Get(symbol).Size
	signedOrderSize := size
	if side == types.SideSell {
		signedOrderSize = size.Neg()
	}
	estimatedLoss := risk.EstimateTradeLossUSD(slip.VWAP, size, e.settings.Execution.StopLossBps)
	_, evalErr := e.hardLimits.EvaluateOrder(existingSize, signedOrderSize, book.MidPrice(), estimatedLoss)
	riskTimer.Stop()
	if evalErr != nil {
		e.log.Info().Str("symbol", symbol).Err(evalErr).Msg("order rejected by risk limits")
		return
	}

	decisionConfidence := confidence
	if cost.RecommendIOC {
		decisionConfidence = types.ConfidenceLow // LOW bypasses maker-first in Router.Route
	}

	bestOpposite := book.BestAsk().Price
	if side == types.SideSell {
		bestOpposite = book.BestBid().Price
	}

	d := execution.Decision{
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		LimitPrice: makerPrice(book, side, e.settings.Execution.TickOffset),
		WorstPrice: iocPrice(book, side, e.settings.Execution.IOCPriceAdjustmentBps),
		Confidence: decisionConfidence,
	}

	e.collector.RecordSignal(metrics.SignalRecord{
		Timestamp:  now,
		Symbol:     symbol,
		Score:      adjusted,
		Confidence: confidence,
	})

	orderTimer := latency.StartTimer(latency.StageOrder)
	order, err := e.router.Route(ctx, d, e.makeFillHandler(now, book.MidPrice(), bestOpposite, adjusted))
	orderTimer.Stop()
	if err != nil {
		e.log.Info().Str("symbol", symbol).Err(err).Msg("order routing failed")
		return
	}
	e.log.Info().Str("symbol", symbol).Str("order_id", order.ID).Str("status", order.Status.String()).Msg("order routed")
}

// positionSize applies the health-derived size factor against the
// configured default order size; reduceSize halves it further when the cost
// estimator flags thin depth.
func (e *Engine) positionSize(book types.MarketData, sizeFactor float64, reduceSize bool) types.Decimal {
	factor := sizeFactor
	if reduceSize {
		factor *= 0.5
	}
	return types.D(e.settings.Execution.DefaultSize * factor)
}

func midFloat(book types.MarketData) float64 {
	v, _ := book.MidPrice().Float64()
	return v
}

func depthUSD(book types.MarketData) float64 {
	bid := book.BestBid()
	ask := book.BestAsk()
	bidUSD, _ := bid.Price.Mul(bid.Size).Float64()
	askUSD, _ := ask.Price.Mul(ask.Size).Float64()
	return bidUSD + askUSD
}

// makerPrice computes the post-only limit price: tickOffset is a config-
// provided absolute quantum, not inferred from the venue, so best_bid +
// tickOffset on a BUY can cross the book on a tight spread — the venue's
// post-only flag is what is relied on to reject the cross, not this price
// calculation.
func makerPrice(book types.MarketData, side types.Side, tickOffset float64) types.Decimal {
	offset := types.D(tickOffset)
	if side == types.SideBuy {
		return book.BestBid().Price.Add(offset)
	}
	return book.BestAsk().Price.Sub(offset)
}

// iocPrice computes the IOC limit price: best opposite-side price adjusted
// by the configured slippage budget in the order's favor-losing direction,
// so the order is a bounded-slippage limit order rather than an unbounded
// market order.
func iocPrice(book types.MarketData, side types.Side, adjustmentBps float64) types.Decimal {
	adj := types.D(adjustmentBps / 10000)
	if side == types.SideBuy {
		ask := book.BestAsk().Price
		return ask.Add(ask.Mul(adj))
	}
	bid := book.BestBid().Price
	return bid.Sub(bid.Mul(adj))
}

// Run drives Tick on a fixed interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("engine shutting down")
			return
		case now := <-ticker.C:
			e.Tick(ctx, now)
		}
	}
}
