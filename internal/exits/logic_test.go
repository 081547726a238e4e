package exits

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

func TestTPSLStopLossTakesPrecedenceOverMaxAge(t *testing.T) {
	m := NewTPSLManager()
	now := time.Now()

	result, err := m.Evaluate(context.Background(), ExitInputs{
		Symbol:        "BTC-USD",
		Side:          types.SideBuy,
		EntryPrice:    types.D(100),
		CurrentPrice:  types.D(97),
		OpenedAt:      now.Add(-2 * time.Hour),
		Now:           now,
		TakeProfitBps: 50,
		StopLossBps:   200,
		MaxAge:        time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, types.ExitReasonStopLoss, result.Reason)
}

func TestTPSLTakeProfitTriggers(t *testing.T) {
	m := NewTPSLManager()
	now := time.Now()

	result, err := m.Evaluate(context.Background(), ExitInputs{
		Symbol:        "BTC-USD",
		Side:          types.SideBuy,
		EntryPrice:    types.D(100),
		CurrentPrice:  types.D(100.6),
		OpenedAt:      now.Add(-time.Minute),
		Now:           now,
		TakeProfitBps: 50,
		StopLossBps:   200,
		MaxAge:        time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, types.ExitReasonTakeProfit, result.Reason)
}

func TestTPSLMaxAgeTriggersWithoutPnLBreach(t *testing.T) {
	m := NewTPSLManager()
	now := time.Now()

	result, err := m.Evaluate(context.Background(), ExitInputs{
		Symbol:        "BTC-USD",
		Side:          types.SideBuy,
		EntryPrice:    types.D(100),
		CurrentPrice:  types.D(100.1),
		OpenedAt:      now.Add(-2 * time.Hour),
		Now:           now,
		TakeProfitBps: 50,
		StopLossBps:   200,
		MaxAge:        time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, types.ExitReasonMaxAge, result.Reason)
}

func TestTPSLNoExit(t *testing.T) {
	m := NewTPSLManager()
	now := time.Now()

	result, err := m.Evaluate(context.Background(), ExitInputs{
		Symbol:        "BTC-USD",
		Side:          types.SideBuy,
		EntryPrice:    types.D(100),
		CurrentPrice:  types.D(100.1),
		OpenedAt:      now.Add(-time.Minute),
		Now:           now,
		TakeProfitBps: 50,
		StopLossBps:   200,
		MaxAge:        time.Hour,
	})
	require.NoError(t, err)
	assert.False(t, result.ShouldExit)
	assert.Equal(t, types.ExitReasonNone, result.Reason)
}

func TestTPSLShortSideSignFlipped(t *testing.T) {
	m := NewTPSLManager()
	now := time.Now()

	result, err := m.Evaluate(context.Background(), ExitInputs{
		Symbol:        "BTC-USD",
		Side:          types.SideSell,
		EntryPrice:    types.D(100),
		CurrentPrice:  types.D(103),
		OpenedAt:      now.Add(-time.Minute),
		Now:           now,
		TakeProfitBps: 50,
		StopLossBps:   200,
		MaxAge:        time.Hour,
	})
	require.NoError(t, err)
	assert.True(t, result.ShouldExit)
	assert.Equal(t, types.ExitReasonStopLoss, result.Reason)
}
