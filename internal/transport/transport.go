// Package transport implements the venue order-transport boundary: a
// retrying, circuit-broken, rate-limited envelope around the raw venue
// client, following this codebase's net/circuit and net/ratelimit idioms
// rather than a bespoke retry loop per call site.
package transport

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/sawpanic/cryptorun-execcore/internal/errs"
	"github.com/sawpanic/cryptorun-execcore/internal/net/circuit"
	"github.com/sawpanic/cryptorun-execcore/internal/net/ratelimit"
	"github.com/sawpanic/cryptorun-execcore/internal/telemetry/venues"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

// VenueClient is the raw, unreliable venue API surface that Transport
// wraps. Implementations talk to the actual exchange; tests substitute a
// fake.
type VenueClient interface {
	PlaceOrder(ctx context.Context, order *types.Order) error
	CancelOrder(ctx context.Context, order *types.Order) error
	FetchMarketData(ctx context.Context, symbol string) (*types.MarketData, error)
}

// RetryPolicy configures the exponential backoff envelope.
type RetryPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultRetryPolicy is 100ms base, 5s cap, 5 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: 5 * time.Second, MaxAttempts: 5}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Transport wraps a VenueClient with a circuit breaker, a per-host rate
// limiter, and a bounded retry envelope. Order placement and cancellation
// are NOT retried automatically — a retried place/cancel risks a duplicate
// order at the venue, so callers get the raw error and decide; market data
// fetches are retried since they are idempotent reads.
type Transport struct {
	client  VenueClient
	breaker *circuit.Breaker
	limiter *ratelimit.Limiter
	retry   RetryPolicy
	host    string
	log     zerolog.Logger
	metrics *venues.Collector
}

// Config bundles Transport's dependencies.
type Config struct {
	Client  VenueClient
	Host    string
	Breaker circuit.Config
	RPS     float64
	Burst   int
	Retry   RetryPolicy
	Log     zerolog.Logger
	// Metrics is optional; when set, every request's latency, error class,
	// and the breaker's state are published for Prometheus scraping.
	Metrics *venues.Collector
}

// New builds a Transport from Config, constructing its own circuit breaker
// and rate limiter from the supplied settings.
func New(cfg Config) *Transport {
	return &Transport{
		client:  cfg.Client,
		breaker: circuit.NewBreaker(cfg.Breaker),
		limiter: ratelimit.NewLimiter(cfg.RPS, cfg.Burst),
		retry:   cfg.Retry,
		host:    cfg.Host,
		log:     cfg.Log,
		metrics: cfg.Metrics,
	}
}

// PlaceOrder sends an order through the rate limiter and circuit breaker,
// without retry.
func (t *Transport) PlaceOrder(ctx context.Context, order *types.Order) error {
	if err := t.limiter.Wait(ctx, t.host); err != nil {
		return err
	}
	start := time.Now()
	err := t.breaker.Call(ctx, func(ctx context.Context) error {
		return t.client.PlaceOrder(ctx, order)
	})
	t.observe("place_order", start, err)
	return err
}

// CancelOrder sends a cancel through the rate limiter and circuit breaker,
// without retry.
func (t *Transport) CancelOrder(ctx context.Context, order *types.Order) error {
	if err := t.limiter.Wait(ctx, t.host); err != nil {
		return err
	}
	start := time.Now()
	err := t.breaker.Call(ctx, func(ctx context.Context) error {
		return t.client.CancelOrder(ctx, order)
	})
	t.observe("cancel_order", start, err)
	return err
}

// FetchMarketData retries on failure up to the configured attempt cap with
// exponential backoff, since a market data read has no side effects.
func (t *Transport) FetchMarketData(ctx context.Context, symbol string) (*types.MarketData, error) {
	var lastErr error
	for attempt := 0; attempt < t.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(t.retry.delay(attempt - 1)):
			}
		}

		if err := t.limiter.Wait(ctx, t.host); err != nil {
			return nil, err
		}

		start := time.Now()
		var md *types.MarketData
		err := t.breaker.Call(ctx, func(ctx context.Context) error {
			var fetchErr error
			md, fetchErr = t.client.FetchMarketData(ctx, symbol)
			return fetchErr
		})
		t.observe("fetch_market_data", start, err)
		if err == nil {
			return md, nil
		}
		lastErr = err
		if err == circuit.ErrCircuitOpen {
			break
		}
		t.log.Warn().Str("symbol", symbol).Int("attempt", attempt).Err(err).Msg("market data fetch failed, retrying")
	}
	_ = lastErr
	return nil, errs.ErrTransport
}

// BreakerState exposes the underlying circuit breaker's state for health
// reporting.
func (t *Transport) BreakerState() circuit.State {
	return t.breaker.State()
}

func (t *Transport) observe(operation string, start time.Time, err error) {
	if t.metrics == nil {
		return
	}
	latencyMS := float64(time.Since(start).Microseconds()) / 1000.0
	t.metrics.RecordRequest(t.host, operation, latencyMS, err)
	t.metrics.SetCircuitState(t.host, breakerStateValue(t.breaker.State()))
}

func breakerStateValue(s circuit.State) int {
	switch s {
	case circuit.StateOpen:
		return venues.CircuitOpen
	case circuit.StateHalfOpen:
		return venues.CircuitHalfOpen
	default:
		return venues.CircuitClosed
	}
}
