package execution

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/cryptorun-execcore/internal/errs"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

type fakeVenue struct {
	placeErr error
	fillNow  bool // if true, PlaceOrder marks the order filled before returning
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, order *types.Order) error {
	if f.placeErr != nil {
		return f.placeErr
	}
	if f.fillNow {
		order.ApplyFill(order.Size, order.Price, time.Now())
	}
	return nil
}

func (f *fakeVenue) CancelOrder(ctx context.Context, order *types.Order) error {
	return nil
}

func fixedClock(t time.Time) Clock { return func() time.Time { return t } }

func TestRouteIOCFillsImmediately(t *testing.T) {
	venue := &fakeVenue{fillNow: true}
	r := NewRouter(venue, fixedClock(time.Now()), zerolog.Nop(), Config{})
	d := Decision{Symbol: "BTC-USD", Side: types.SideBuy, Size: types.D(1), WorstPrice: types.D(100), Confidence: types.ConfidenceLow}
	order, err := r.Route(context.Background(), d, nil)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusFilled, order.Status)
}

func TestRouteMakerFirstTimesOutAndFallsBackToIOC(t *testing.T) {
	venue := &fakeVenue{}
	r := NewRouter(venue, fixedClock(time.Now()), zerolog.Nop(), Config{
		HighConfidenceTimeout: 5 * time.Millisecond,
	})
	d := Decision{Symbol: "BTC-USD", Side: types.SideBuy, Size: types.D(1), LimitPrice: types.D(100), WorstPrice: types.D(101), Confidence: types.ConfidenceHigh}
	order, err := r.Route(context.Background(), d, nil)
	require.NoError(t, err)
	assert.Equal(t, types.OrderTypeIOC, order.Type)
}

func TestRouteRejectsSecondInFlightOrderForSamePair(t *testing.T) {
	venue := &fakeVenue{}
	r := NewRouter(venue, fixedClock(time.Now()), zerolog.Nop(), Config{
		HighConfidenceTimeout: 200 * time.Millisecond,
	})
	d := Decision{Symbol: "BTC-USD", Side: types.SideBuy, Size: types.D(1), LimitPrice: types.D(100), Confidence: types.ConfidenceHigh}

	go func() {
		_, _ = r.Route(context.Background(), d, nil)
	}()
	time.Sleep(10 * time.Millisecond)

	_, err := r.Route(context.Background(), d, nil)
	assert.ErrorIs(t, err, errs.ErrBusy)
}
