package kraken

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sawpanic/cryptorun-execcore/internal/types"
)

func TestToKrakenPairStripsHyphen(t *testing.T) {
	assert.Equal(t, "BTCUSD", toKrakenPair("BTC-USD"))
}

func TestKrakenSideMapsBuySell(t *testing.T) {
	assert.Equal(t, "buy", krakenSide(types.SideBuy))
	assert.Equal(t, "sell", krakenSide(types.SideSell))
}

func TestKrakenOrderTypeMapsMakerIOC(t *testing.T) {
	assert.Equal(t, "limit", krakenOrderType(types.OrderTypeMaker))
	assert.Equal(t, "limit", krakenOrderType(types.OrderTypeIOC))
}

func TestIsPostOnlyCrossedMatchesKrakenMessage(t *testing.T) {
	assert.True(t, isPostOnlyCrossed(fmt.Errorf("kraken api error: [%s]", postOnlyCrossedSubstr)))
	assert.False(t, isPostOnlyCrossed(fmt.Errorf("kraken api error: [EOrder:Insufficient funds]")))
	assert.False(t, isPostOnlyCrossed(nil))
}

func TestSignIsDeterministicForSameInputs(t *testing.T) {
	c, err := New(Config{APIKey: "key", APISecret: "c2VjcmV0"})
	assert.NoError(t, err)

	sig1 := c.sign("/0/private/AddOrder", "12345", "pair=BTCUSD")
	sig2 := c.sign("/0/private/AddOrder", "12345", "pair=BTCUSD")
	sig3 := c.sign("/0/private/AddOrder", "12345", "pair=ETHUSD")

	assert.Equal(t, sig1, sig2)
	assert.NotEqual(t, sig1, sig3)
}

func TestLevelsFromParsesValidRowsAndSkipsInvalid(t *testing.T) {
	raw := [][3]interface{}{
		{"50000.1", "0.5", float64(1234567890)},
		{"not-a-number", "0.5", float64(1234567890)},
	}
	levels := levelsFrom(raw)
	assert.Len(t, levels, 1)
	assert.Equal(t, "50000.1", levels[0].Price.String())
}
