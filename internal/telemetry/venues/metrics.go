// Package venues exposes Prometheus metrics for venue connectivity: request
// counts, error rates, circuit breaker state, and latency, scraped from the
// transport layer rather than the signal or risk pipeline.
package venues

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sawpanic/cryptorun-execcore/internal/errs"
	"github.com/sawpanic/cryptorun-execcore/internal/net/circuit"
)

// Collector registers and updates the venue-health gauges/counters for one
// process. A single Collector is shared across every transport.Transport the
// engine drives, labeled by venue name.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	circuitState    *prometheus.GaugeVec
	rateLimitWaitMS *prometheus.HistogramVec
}

// Circuit breaker state values reported on the circuit_state gauge, matching
// internal/net/circuit.State's Closed/Open/HalfOpen ordering.
const (
	CircuitClosed  = 0
	CircuitOpen    = 1
	CircuitHalfOpen = 2
)

// NewCollector builds a Collector with its own registry so tests and the
// running process don't collide with the default global registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "execcore_venue_requests_total",
			Help: "Total venue requests by venue and operation",
		}, []string{"venue", "operation"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "execcore_venue_request_errors_total",
			Help: "Total failed venue requests by venue, operation, and error class",
		}, []string{"venue", "operation", "class"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "execcore_venue_request_latency_ms",
			Help:    "Venue request latency in milliseconds by venue and operation",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"venue", "operation"}),
		circuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "execcore_venue_circuit_state",
			Help: "Circuit breaker state by venue (0=closed, 1=open, 2=half-open)",
		}, []string{"venue"}),
		rateLimitWaitMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "execcore_venue_ratelimit_wait_ms",
			Help:    "Time spent waiting on the venue rate limiter in milliseconds",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}, []string{"venue"}),
	}

	reg.MustRegister(c.requestsTotal, c.requestErrors, c.requestLatency, c.circuitState, c.rateLimitWaitMS)
	return c
}

// RecordRequest records one venue request's outcome and latency.
func (c *Collector) RecordRequest(venue, operation string, latencyMS float64, err error) {
	c.requestsTotal.WithLabelValues(venue, operation).Inc()
	c.requestLatency.WithLabelValues(venue, operation).Observe(latencyMS)
	if err != nil {
		c.requestErrors.WithLabelValues(venue, operation, classifyErr(err)).Inc()
	}
}

// RecordRateLimitWait records time spent blocked on the venue's rate limiter.
func (c *Collector) RecordRateLimitWait(venue string, waitMS float64) {
	c.rateLimitWaitMS.WithLabelValues(venue).Observe(waitMS)
}

// SetCircuitState publishes a venue's current circuit breaker state.
func (c *Collector) SetCircuitState(venue string, state int) {
	c.circuitState.WithLabelValues(venue).Set(float64(state))
}

// Handler exposes the registry in the standard Prometheus text exposition
// format, to be mounted under /metrics by the CLI's serve command.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func classifyErr(err error) string {
	switch {
	case errors.Is(err, circuit.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, circuit.ErrRequestTimeout):
		return "timeout"
	case errors.Is(err, errs.ErrBusy):
		return "busy"
	default:
		var crossed *errs.PostOnlyCrossed
		if errors.As(err, &crossed) {
			return "post_only_crossed"
		}
		return "other"
	}
}
