package xemm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantedge/xemm-core/pkg/xemm"
	"github.com/quantedge/xemm-core/pkg/xemmtest"
)

func strategyCfg() xemm.Config {
	return xemm.Config{
		MinProfitability:             xemmtest.Number(0.001),
		OrderAmount:                  xemmtest.Number(1),
		OrderSizeTakerVolumeFactor:   xemmtest.Number(1),
		OrderSizeTakerBalanceFactor:  xemmtest.Number(1),
		OrderSizePortfolioRatioLimit: xemmtest.Number(1),
		AdjustOrderEnabled:           true,
		ActiveOrderCanceling:         true,
		CancelOrderThreshold:         xemmtest.Number(0),
		AntiHysteresisDuration:       30 * time.Second,
		LimitOrderMinExpiration:      time.Minute,
	}
}

func newTestStrategy(t *testing.T) (*xemm.Strategy, *xemmtest.Venue, *xemmtest.Venue, *xemmtest.ActiveOrders) {
	t.Helper()

	maker := xemmtest.NewVenue("maker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	taker := xemmtest.NewVenue("taker", xemmtest.Number(0.01), xemmtest.Number(0.0001))

	maker.SetBalance("BTC", xemmtest.Number(10), xemmtest.Number(10))
	maker.SetBalance("USDT", xemmtest.Number(1000000), xemmtest.Number(1000000))
	taker.SetBalance("BTC", xemmtest.Number(10), xemmtest.Number(10))
	taker.SetBalance("USDT", xemmtest.Number(1000000), xemmtest.Number(1000000))

	maker.SetBook("BTCUSDT", &xemmtest.Book{
		Bids: []xemmtest.PriceVolume{xemmtest.Level(99.9, 50)},
		Asks: []xemmtest.PriceVolume{xemmtest.Level(100.3, 50)},
	})
	taker.SetBook("BTCUSDT", &xemmtest.Book{
		Bids: []xemmtest.PriceVolume{xemmtest.Level(100, 50)},
		Asks: []xemmtest.PriceVolume{xemmtest.Level(100.2, 50)},
	})

	venues := map[string]xemm.VenueAdapter{"maker": maker, "taker": taker}
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")
	orders := xemmtest.NewActiveOrders()

	s, err := xemm.NewStrategy(strategyCfg(), []xemm.MarketPair{pair}, venues, nil, orders, xemmtest.NopNotifier{}, nil)
	require.NoError(t, err)
	return s, maker, taker, orders
}

func TestNewStrategyRejectsInvalidConfig(t *testing.T) {
	cfg := strategyCfg()
	cfg.MinProfitability = xemmtest.Number(-1)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")
	venues := map[string]xemm.VenueAdapter{
		"maker": xemmtest.NewVenue("maker", xemmtest.Number(0.01), xemmtest.Number(0.0001)),
		"taker": xemmtest.NewVenue("taker", xemmtest.Number(0.01), xemmtest.Number(0.0001)),
	}
	_, err := xemm.NewStrategy(cfg, []xemm.MarketPair{pair}, venues, nil, xemmtest.NewActiveOrders(), xemmtest.NopNotifier{}, nil)
	assert.Error(t, err)
}

func TestNewStrategyRejectsEmptyPairs(t *testing.T) {
	_, err := xemm.NewStrategy(strategyCfg(), nil, map[string]xemm.VenueAdapter{}, nil, xemmtest.NewActiveOrders(), xemmtest.NopNotifier{}, nil)
	assert.Error(t, err)
}

func TestNewStrategyRejectsMissingVenue(t *testing.T) {
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")
	venues := map[string]xemm.VenueAdapter{
		"maker": xemmtest.NewVenue("maker", xemmtest.Number(0.01), xemmtest.Number(0.0001)),
	}
	_, err := xemm.NewStrategy(strategyCfg(), []xemm.MarketPair{pair}, venues, nil, xemmtest.NewActiveOrders(), xemmtest.NopNotifier{}, nil)
	assert.Error(t, err)
}

func TestStrategyTickSkipsWhenNotReady(t *testing.T) {
	s, maker, _, _ := newTestStrategy(t)
	maker.ReadyFlag = false

	err := s.Tick(time.Unix(1_700_000_000, 0))
	assert.NoError(t, err)
	assert.Equal(t, 0, s.Tracker().NumLive())
}

func TestStrategyTickCreatesOrdersWhenReady(t *testing.T) {
	s, maker, _, _ := newTestStrategy(t)

	err := s.Tick(time.Unix(1_700_000_000, 0))
	require.NoError(t, err)

	assert.Len(t, maker.BuyCalls, 1)
	assert.Len(t, maker.SellCalls, 1)
	assert.Equal(t, 2, s.Tracker().NumLive())
}

func TestStrategyDidFillOrderHedgesOnMakerLimitFill(t *testing.T) {
	s, _, taker, orders := newTestStrategy(t)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")

	require.NoError(t, s.Tick(time.Unix(1_700_000_000, 0)))

	live := s.Tracker()
	_ = live
	_ = orders

	id := xemm.NewClientOrderId(xemm.SideBuy, "synthetic")
	s.Tracker().StartTracking(id, pair)

	s.DidFillOrder(xemm.Event{
		Type:      xemm.EventOrderFilled,
		OrderID:   id,
		OrderType: xemm.OrderTypeLimit,
		Side:      xemm.SideBuy,
		Amount:    xemmtest.Number(1),
		Price:     xemmtest.Number(99.9),
		Time:      time.Unix(1_700_000_001, 0),
	})

	assert.Len(t, taker.SellCalls, 1)
	assert.True(t, s.Hedger().HasPending(pair))
}

func TestStrategyDidFillOrderIgnoresMarketFill(t *testing.T) {
	s, _, taker, _ := newTestStrategy(t)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")
	id := xemm.NewClientOrderId(xemm.SideBuy, "synthetic-market")
	s.Tracker().StartTracking(id, pair)

	s.DidFillOrder(xemm.Event{
		OrderID:   id,
		OrderType: xemm.OrderTypeMarket,
		Side:      xemm.SideBuy,
		Amount:    xemmtest.Number(1),
		Price:     xemmtest.Number(100),
		Time:      time.Unix(1_700_000_001, 0),
	})

	assert.Len(t, taker.SellCalls, 0)
}

func TestStrategyDidCompleteOrderRetiresID(t *testing.T) {
	s, _, _, _ := newTestStrategy(t)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")
	id := xemm.NewClientOrderId(xemm.SideBuy, "complete-me")
	s.Tracker().StartTracking(id, pair)

	now := time.Unix(1_700_000_002, 0)
	s.DidCompleteBuyOrder(xemm.Event{OrderID: id, OrderType: xemm.OrderTypeLimit, Time: now})

	assert.Equal(t, 0, s.Tracker().NumLive())
	_, ok := s.Tracker().Lookup(id)
	assert.True(t, ok, "should still resolve from the shadow window")
}

func TestStrategyFormatStatusDoesNotPanicWithNoActiveOrders(t *testing.T) {
	s, _, _, _ := newTestStrategy(t)
	out := s.FormatStatus(time.Unix(1_700_000_000, 0))
	assert.Contains(t, out, "xemm strategy status")
}
