package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cryptorun-execcore/internal/config"
	"github.com/sawpanic/cryptorun-execcore/internal/execution"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

type fakeSource struct {
	book *types.MarketData
	err  error
}

func (f *fakeSource) FetchMarketData(ctx context.Context, symbol string) (*types.MarketData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.book, nil
}

type fakeVenue struct {
	placeCalls int
}

func (v *fakeVenue) PlaceOrder(ctx context.Context, order *types.Order) error {
	v.placeCalls++
	order.Status = types.OrderStatusRejected
	return nil
}

func (v *fakeVenue) CancelOrder(ctx context.Context, order *types.Order) error {
	return nil
}

func testSettings() config.Settings {
	s := config.Default()
	s.Symbols = []string{"BTC-USD"}
	return s
}

func validBook() *types.MarketData {
	return &types.MarketData{
		Symbol:    "BTC-USD",
		Venue:     "kraken",
		Timestamp: time.Now(),
		Bids:      []types.Level{{Price: types.D(100), Size: types.D(1)}},
		Asks:      []types.Level{{Price: types.D(100.1), Size: types.D(1)}},
	}
}

func newTestEngine(source *fakeSource, venue *fakeVenue) *Engine {
	settings := testSettings()
	router := execution.NewRouter(venue, time.Now, zerolog.Nop(), execution.Config{
		HighConfidenceTimeout:   time.Millisecond,
		MediumConfidenceTimeout: time.Millisecond,
		MediumFallbackToIOC:     true,
	})
	return New(settings, settings.Symbols, source, router, zerolog.Nop())
}

func TestTickSkipsSymbolOnMarketDataError(t *testing.T) {
	venue := &fakeVenue{}
	eng := newTestEngine(&fakeSource{err: assertErr("fetch failed")}, venue)

	assert.NotPanics(t, func() { eng.Tick(context.Background(), time.Now()) })
	assert.Equal(t, 0, venue.placeCalls)
}

func TestTickClosesPositionsOnlyWhenBreached(t *testing.T) {
	venue := &fakeVenue{}
	eng := newTestEngine(&fakeSource{book: validBook()}, venue)

	eng.HardLimits().RecordPnL(-1_000_000)
	require.True(t, eng.HardLimits().Breached())

	eng.Tick(context.Background(), time.Now())

	assert.Equal(t, 0, venue.placeCalls)
}

func TestHardLimitsAccessorReflectsEngineState(t *testing.T) {
	eng := newTestEngine(&fakeSource{book: validBook()}, &fakeVenue{})
	assert.False(t, eng.HardLimits().Breached())
	assert.Equal(t, testSettings().Risk.InitialNAV, eng.HardLimits().NAV())
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
