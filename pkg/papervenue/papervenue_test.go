package papervenue_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c9s/bbgo/pkg/fixedpoint"

	"github.com/quantedge/xemm-core/pkg/papervenue"
	"github.com/quantedge/xemm-core/pkg/xemm"
)

func newVenue() *papervenue.Venue {
	v := papervenue.New(papervenue.Config{
		Name:       "test",
		Mid:        fixedpoint.NewFromFloat(100),
		SpreadBps:  fixedpoint.NewFromFloat(10),
		DepthLevel: fixedpoint.NewFromFloat(5),
		LevelCount: 3,
		Tick:       fixedpoint.NewFromFloat(0.01),
		Lot:        fixedpoint.NewFromFloat(0.001),
	}, map[string]fixedpoint.Value{
		"BTC":  fixedpoint.NewFromFloat(1),
		"USDT": fixedpoint.NewFromFloat(10000),
	}, 42)
	v.Seed("BTCUSDT")
	return v
}

func TestPaperVenueBookAroundMid(t *testing.T) {
	v := newVenue()
	bid, ask, ok := v.OrderBook("BTCUSDT").BestBidAsk()
	require.True(t, ok)
	assert.True(t, bid.Compare(fixedpoint.NewFromFloat(100)) < 0)
	assert.True(t, ask.Compare(fixedpoint.NewFromFloat(100)) > 0)
}

func TestPaperVenueBalances(t *testing.T) {
	v := newVenue()
	assert.True(t, v.AvailableBalance("BTC").Compare(fixedpoint.NewFromFloat(1)) == 0)
	assert.True(t, v.AvailableBalance("ETH").Sign() == 0)
}

func TestPaperVenueSubmitRejectsNonPositive(t *testing.T) {
	v := newVenue()
	_, err := v.Buy("BTCUSDT", fixedpoint.Zero, xemm.OrderTypeLimit, fixedpoint.NewFromFloat(100), 0)
	assert.Error(t, err)
}

func TestPaperVenueSubmitAssignsIDs(t *testing.T) {
	v := newVenue()
	id1, err := v.Buy("BTCUSDT", fixedpoint.NewFromFloat(0.01), xemm.OrderTypeLimit, fixedpoint.NewFromFloat(99), 0)
	require.NoError(t, err)
	id2, err := v.Sell("BTCUSDT", fixedpoint.NewFromFloat(0.01), xemm.OrderTypeLimit, fixedpoint.NewFromFloat(101), 0)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestPaperVenueStepWalksMid(t *testing.T) {
	v := papervenue.New(papervenue.Config{
		Name:       "walker",
		Mid:        fixedpoint.NewFromFloat(100),
		SpreadBps:  fixedpoint.NewFromFloat(10),
		DepthLevel: fixedpoint.NewFromFloat(5),
		LevelCount: 2,
		Tick:       fixedpoint.NewFromFloat(0.01),
		Lot:        fixedpoint.NewFromFloat(0.001),
		DriftBps:   fixedpoint.NewFromFloat(50),
	}, nil, 7)
	v.Seed("BTCUSDT")

	before, _, _ := v.OrderBook("BTCUSDT").BestBidAsk()
	v.Step()
	after, _, _ := v.OrderBook("BTCUSDT").BestBidAsk()

	assert.NotEqual(t, before, after, "random walk with nonzero drift should move the book")
}
