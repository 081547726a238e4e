package venues

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/cryptorun-execcore/internal/net/circuit"
)

func TestRecordRequestIncrementsCounters(t *testing.T) {
	c := NewCollector()
	c.RecordRequest("kraken", "fetch_market_data", 12.5, nil)
	c.RecordRequest("kraken", "fetch_market_data", 9.0, circuit.ErrCircuitOpen)

	got := testutil.ToFloat64(c.requestsTotal.WithLabelValues("kraken", "fetch_market_data"))
	assert.Equal(t, float64(2), got)

	errCount := testutil.ToFloat64(c.requestErrors.WithLabelValues("kraken", "fetch_market_data", "circuit_open"))
	assert.Equal(t, float64(1), errCount)
}

func TestClassifyErrMapsKnownSentinels(t *testing.T) {
	assert.Equal(t, "circuit_open", classifyErr(circuit.ErrCircuitOpen))
	assert.Equal(t, "timeout", classifyErr(circuit.ErrRequestTimeout))
	assert.Equal(t, "other", classifyErr(assertErr("boom")))
}

func TestSetCircuitStatePublishesGauge(t *testing.T) {
	c := NewCollector()
	c.SetCircuitState("kraken", CircuitOpen)

	got := testutil.ToFloat64(c.circuitState.WithLabelValues("kraken"))
	assert.Equal(t, float64(CircuitOpen), got)
	assert.NotNil(t, c.Handler())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
