package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/cryptorun-execcore/internal/net/circuit"
	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

type fakeVenue struct {
	placeErr      error
	fetchErr      error
	fetchFailures int
	fetchCalls    int
}

func (f *fakeVenue) PlaceOrder(ctx context.Context, order *types.Order) error { return f.placeErr }
func (f *fakeVenue) CancelOrder(ctx context.Context, order *types.Order) error { return nil }
func (f *fakeVenue) FetchMarketData(ctx context.Context, symbol string) (*types.MarketData, error) {
	f.fetchCalls++
	if f.fetchCalls <= f.fetchFailures {
		return nil, f.fetchErr
	}
	return &types.MarketData{Symbol: symbol}, nil
}

func newTestTransport(client VenueClient) *Transport {
	return New(Config{
		Client:  client,
		Host:    "test-venue",
		Breaker: circuit.Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Second, RequestTimeout: time.Second},
		RPS:     1000,
		Burst:   1000,
		Retry:   RetryPolicy{BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond, MaxAttempts: 3},
	})
}

func TestPlaceOrderPropagatesError(t *testing.T) {
	client := &fakeVenue{placeErr: errors.New("rejected")}
	tr := newTestTransport(client)
	err := tr.PlaceOrder(context.Background(), &types.Order{})
	assert.Error(t, err)
}

func TestFetchMarketDataRetriesThenSucceeds(t *testing.T) {
	client := &fakeVenue{fetchErr: errors.New("timeout"), fetchFailures: 2}
	tr := newTestTransport(client)
	md, err := tr.FetchMarketData(context.Background(), "BTC-USD")
	assert.NoError(t, err)
	assert.Equal(t, "BTC-USD", md.Symbol)
	assert.Equal(t, 3, client.fetchCalls)
}

func TestFetchMarketDataExhaustsRetries(t *testing.T) {
	client := &fakeVenue{fetchErr: errors.New("down"), fetchFailures: 100}
	tr := newTestTransport(client)
	_, err := tr.FetchMarketData(context.Background(), "BTC-USD")
	assert.Error(t, err)
}
