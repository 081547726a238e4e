// Package execution implements the hybrid Maker/IOC order router: HIGH and
// MEDIUM confidence signals attempt a post-only maker placement first, with
// a confidence-tiered timeout before falling back to an immediate-or-cancel
// taker order, following the same state-machine-over-a-transport idiom this
// codebase uses for chained, cancellable multi-leg operations.
package execution

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/cryptorun-execcore/internal/errs"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// Venue is the subset of transport.Transport the router needs. Declared
// locally so this package does not import transport directly, keeping the
// dependency direction router -> (interface) rather than router -> transport.
type Venue interface {
	PlaceOrder(ctx context.Context, order *types.Order) error
	CancelOrder(ctx context.Context, order *types.Order) error
}

// Clock abstracts time.Now so tests can control tick timing.
type Clock func() time.Time

// Decision is the router's input: a classified, deduplicated signal ready
// to act on.
type Decision struct {
	Symbol     string
	Side       types.Side
	Size       types.Decimal
	LimitPrice types.Decimal // post-only maker price
	WorstPrice types.Decimal // worst acceptable IOC price
	Confidence types.Confidence
}

// FillCallback is invoked once for every (partial or full) fill the router
// observes, so the engine can update positions and PnL attribution as fills
// happen rather than only at order completion.
type FillCallback func(order *types.Order, qty, price types.Decimal, now time.Time)

// Router dispatches decisions to a maker-first or IOC-only path depending on
// confidence tier, enforcing at most one in-flight order per (symbol, side)
// pair: a second decision for a pair that already has a resting or placing
// order is rejected locally with errs.ErrBusy rather than queued, since a
// stale decision should not pile up behind a slow venue ack.
type Router struct {
	venue Venue
	clock Clock
	log   zerolog.Logger

	highTimeout       time.Duration
	mediumTimeout     time.Duration
	mediumFallbackIOC bool

	mu      sync.Mutex
	inFlight map[string]*types.Order // keyed by symbol+"|"+side
}

// Config bundles Router's tuning knobs.
type Config struct {
	HighConfidenceTimeout   time.Duration
	MediumConfidenceTimeout time.Duration
	MediumFallbackToIOC     bool
}

// NewRouter builds a Router wired to a venue transport and clock.
func NewRouter(venue Venue, clock Clock, log zerolog.Logger, cfg Config) *Router {
	return &Router{
		venue:             venue,
		clock:             clock,
		log:               log,
		highTimeout:       cfg.HighConfidenceTimeout,
		mediumTimeout:     cfg.MediumConfidenceTimeout,
		mediumFallbackIOC: cfg.MediumFallbackToIOC,
		inFlight:          make(map[string]*types.Order),
	}
}

func inFlightKey(symbol string, side types.Side) string {
	return symbol + "|" + string(side)
}

// acquire claims the (symbol, side) slot for a new order, or returns
// errs.ErrBusy if one is already in flight.
func (r *Router) acquire(symbol string, side types.Side, order *types.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := inFlightKey(symbol, side)
	if existing, ok := r.inFlight[key]; ok && !existing.Status.Terminal() {
		return errs.ErrBusy
	}
	r.inFlight[key] = order
	return nil
}

func (r *Router) release(symbol string, side types.Side) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, inFlightKey(symbol, side))
}

// Route dispatches one decision: HIGH and MEDIUM attempt maker placement
// first and fall back to IOC per their own timeout and fallback policy; any
// other confidence (LOW) is placed directly as IOC, which is how callers
// request an IOC-only order. fill is called for every observed fill on the resulting order.
func (r *Router) Route(ctx context.Context, d Decision, fill FillCallback) (*types.Order, error) {
	switch d.Confidence {
	case types.ConfidenceHigh:
		return r.routeMakerFirst(ctx, d, r.highTimeout, true, fill)
	case types.ConfidenceMedium:
		return r.routeMakerFirst(ctx, d, r.mediumTimeout, r.mediumFallbackIOC, fill)
	default:
		return r.routeIOC(ctx, d, fill)
	}
}

// routeMakerFirst places a post-only maker order and waits up to timeout for
// a full fill. On timeout (or a terminal non-fill outcome) it cancels the
// resting order and, if fallbackIOC is set, routes the remainder as IOC.
func (r *Router) routeMakerFirst(ctx context.Context, d Decision, timeout time.Duration, fallbackIOC bool, fill FillCallback) (*types.Order, error) {
	now := r.clock()
	order := types.NewOrder(d.Symbol, d.Side, types.OrderTypeMaker, d.Confidence, d.LimitPrice, d.Size, now)

	if err := r.acquire(d.Symbol, d.Side, order); err != nil {
		return nil, err
	}
	defer r.release(d.Symbol, d.Side)

	order.Transition(types.OrderStatusPlacing, r.clock())
	if err := r.venue.PlaceOrder(ctx, order); err != nil {
		order.Transition(types.OrderStatusRejected, r.clock())
		var crossed *errs.PostOnlyCrossed
		if errors.As(err, &crossed) && fallbackIOC {
			return r.routeIOC(ctx, d, fill)
		}
		return order, err
	}
	r.notifyFill(order, fill)
	if order.Status.Terminal() {
		return order, nil
	}
	order.Transition(types.OrderStatusResting, r.clock())

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	<-timeoutCtx.Done()

	if order.Status.Terminal() {
		return order, nil
	}

	order.Transition(types.OrderStatusCancelling, r.clock())
	if err := r.venue.CancelOrder(ctx, order); err != nil {
		r.log.Warn().Str("symbol", d.Symbol).Err(err).Msg("maker cancel failed")
	}
	order.Transition(types.OrderStatusCancelled, r.clock())

	remaining := order.RemainingQty()
	if remaining.Sign() <= 0 || !fallbackIOC {
		return order, nil
	}

	iocDecision := d
	iocDecision.Size = remaining
	return r.routeIOC(ctx, iocDecision, fill)
}

// routeIOC places an immediate-or-cancel order and returns once the venue
// acks it — an IOC either fills (fully or partially) or is cancelled by the
// venue immediately, so there is no waiting state to manage here.
func (r *Router) routeIOC(ctx context.Context, d Decision, fill FillCallback) (*types.Order, error) {
	now := r.clock()
	order := types.NewOrder(d.Symbol, d.Side, types.OrderTypeIOC, d.Confidence, d.WorstPrice, d.Size, now)

	if err := r.acquire(d.Symbol, d.Side, order); err != nil {
		return nil, err
	}
	defer r.release(d.Symbol, d.Side)

	order.Transition(types.OrderStatusPlacing, r.clock())
	if err := r.venue.PlaceOrder(ctx, order); err != nil {
		order.Transition(types.OrderStatusRejected, r.clock())
		return order, err
	}
	r.notifyFill(order, fill)
	if order.Status == types.OrderStatusPlacing {
		order.Transition(types.OrderStatusCancelled, r.clock())
	}
	return order, nil
}

// notifyFill invokes the caller's FillCallback once for whatever quantity
// the venue reported filled synchronously during PlaceOrder. fill may be
// nil (tests and exit-flattening calls that don't need the callback).
func (r *Router) notifyFill(order *types.Order, fill FillCallback) {
	if fill == nil || order.FilledQty.Sign() <= 0 {
		return
	}
	fill(order, order.FilledQty, order.AvgFill, r.clock())
}
