package xemm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantedge/xemm-core/pkg/xemm"
	"github.com/quantedge/xemm-core/pkg/xemmtest"
)

func baseCfg() xemm.Config {
	return xemm.Config{
		MinProfitability:             xemmtest.Number(0.001),
		OrderSizeTakerVolumeFactor:   xemmtest.Number(1),
		OrderSizeTakerBalanceFactor:  xemmtest.Number(1),
		OrderSizePortfolioRatioLimit: xemmtest.Number(1),
		CancelOrderThreshold:         xemmtest.Number(0),
		AntiHysteresisDuration:       0,
	}
}

func TestSizerOrderAmountOverride(t *testing.T) {
	cfg := baseCfg()
	cfg.OrderAmount = xemmtest.Number(2)

	maker := xemmtest.NewVenue("maker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	maker.SetBalance("BTC", xemmtest.Number(10), xemmtest.Number(10))
	maker.SetBalance("USDT", xemmtest.Number(100000), xemmtest.Number(100000))

	taker := xemmtest.NewVenue("taker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	taker.SetBalance("BTC", xemmtest.Number(10), xemmtest.Number(10))
	taker.SetBalance("USDT", xemmtest.Number(100000), xemmtest.Number(100000))
	taker.SetBook("BTCUSDT", &xemmtest.Book{
		Bids: []xemmtest.PriceVolume{xemmtest.Level(100, 50)},
		Asks: []xemmtest.PriceVolume{xemmtest.Level(101, 50)},
	})

	sz := xemm.NewSizer(maker, taker, cfg)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")

	size := sz.DesiredSize(pair, xemm.SideBuy, xemmtest.Number(100), xemmtest.Number(101))
	assert.True(t, size.Compare(xemmtest.Number(2)) == 0, "got %v", size)
}

func TestSizerZeroOnEmptyTakerBook(t *testing.T) {
	cfg := baseCfg()
	cfg.OrderAmount = xemmtest.Number(1)

	maker := xemmtest.NewVenue("maker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	maker.SetBalance("BTC", xemmtest.Number(10), xemmtest.Number(10))
	maker.SetBalance("USDT", xemmtest.Number(100000), xemmtest.Number(100000))

	taker := xemmtest.NewVenue("taker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	// No book, no top-of-book price set either -> Price() returns zero.

	sz := xemm.NewSizer(maker, taker, cfg)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")

	size := sz.DesiredSize(pair, xemm.SideBuy, xemmtest.Number(100), xemmtest.Number(101))
	assert.True(t, size.Sign() == 0, "expected zero size on empty taker book, got %v", size)
}

func TestSizerCappedByTakerBalance(t *testing.T) {
	cfg := baseCfg()
	cfg.OrderAmount = xemmtest.Number(5)
	cfg.OrderSizeTakerBalanceFactor = xemmtest.Number(0.5)

	maker := xemmtest.NewVenue("maker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	maker.SetBalance("BTC", xemmtest.Number(100), xemmtest.Number(100))
	maker.SetBalance("USDT", xemmtest.Number(1000000), xemmtest.Number(1000000))

	taker := xemmtest.NewVenue("taker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	taker.SetBalance("BTC", xemmtest.Number(2), xemmtest.Number(2))
	taker.SetBalance("USDT", xemmtest.Number(1000000), xemmtest.Number(1000000))
	taker.SetBook("BTCUSDT", &xemmtest.Book{
		Bids: []xemmtest.PriceVolume{xemmtest.Level(100, 50)},
		Asks: []xemmtest.PriceVolume{xemmtest.Level(101, 50)},
	})

	sz := xemm.NewSizer(maker, taker, cfg)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")

	// SideSell hedges by buying on taker, capped by taker quote balance /
	// vwap * balance factor; here the binding cap is the taker BASE
	// balance * factor used for SideBuy hedging (selling on taker).
	size := sz.DesiredSize(pair, xemm.SideBuy, xemmtest.Number(100), xemmtest.Number(101))
	assert.True(t, size.Compare(xemmtest.Number(1)) == 0, "got %v", size)
}

func TestSizerCappedByTakerVolumeFactor(t *testing.T) {
	cfg := baseCfg()
	cfg.OrderAmount = xemmtest.Number(10)
	cfg.OrderSizeTakerVolumeFactor = xemmtest.Number(0.1)

	maker := xemmtest.NewVenue("maker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	maker.SetBalance("BTC", xemmtest.Number(100), xemmtest.Number(100))
	maker.SetBalance("USDT", xemmtest.Number(1000000), xemmtest.Number(1000000))

	taker := xemmtest.NewVenue("taker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	taker.SetBalance("BTC", xemmtest.Number(100), xemmtest.Number(100))
	taker.SetBalance("USDT", xemmtest.Number(1000000), xemmtest.Number(1000000))
	taker.SetBook("BTCUSDT", &xemmtest.Book{
		Bids: []xemmtest.PriceVolume{xemmtest.Level(100, 50)},
		Asks: []xemmtest.PriceVolume{xemmtest.Level(101, 50)},
	})

	sz := xemm.NewSizer(maker, taker, cfg)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")

	// SideBuy hedges via taker sell, consuming taker bid depth (50) * 0.1 = 5.
	size := sz.DesiredSize(pair, xemm.SideBuy, xemmtest.Number(100), xemmtest.Number(101))
	assert.True(t, size.Compare(xemmtest.Number(5)) == 0, "got %v", size)
}

func TestSizerPortfolioRatioBaseSize(t *testing.T) {
	cfg := baseCfg()
	// OrderAmount left zero -> derive from portfolio value.
	cfg.OrderSizePortfolioRatioLimit = xemmtest.Number(0.1)

	maker := xemmtest.NewVenue("maker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	maker.SetBalance("BTC", xemmtest.Number(1), xemmtest.Number(1))
	maker.SetBalance("USDT", xemmtest.Number(9000), xemmtest.Number(9000))

	taker := xemmtest.NewVenue("taker", xemmtest.Number(0.01), xemmtest.Number(0.0001))
	taker.SetBalance("BTC", xemmtest.Number(100), xemmtest.Number(100))
	taker.SetBalance("USDT", xemmtest.Number(1000000), xemmtest.Number(1000000))
	taker.SetBook("BTCUSDT", &xemmtest.Book{
		Bids: []xemmtest.PriceVolume{xemmtest.Level(100, 50)},
		Asks: []xemmtest.PriceVolume{xemmtest.Level(101, 50)},
	})

	sz := xemm.NewSizer(maker, taker, cfg)
	pair := xemmtest.Pair(1, "maker", "taker", "BTCUSDT", "BTC", "USDT")

	// mid = 100, portfolio value = 1 + 9000/100 = 91, * 0.1 = 9.1
	size := sz.DesiredSize(pair, xemm.SideBuy, xemmtest.Number(100), xemmtest.Number(100))
	assert.True(t, size.Sign() > 0)
	assert.True(t, size.Compare(xemmtest.Number(9.1)) <= 0)
}
