package xemm

import (
	"github.com/c9s/bbgo/pkg/fixedpoint"
)

// Sizer computes an order size honoring a user override, a
// portfolio-ratio cap, taker liquidity, and both-sides balance.
type Sizer struct {
	Maker VenueAdapter
	Taker VenueAdapter
	Cfg   Config
}

// NewSizer constructs a Sizer bound to the maker/taker adapters of a
// strategy instance.
func NewSizer(maker, taker VenueAdapter, cfg Config) *Sizer {
	return &Sizer{Maker: maker, Taker: taker, Cfg: cfg}
}

// takerVWAPForSide returns the taker-venue VWAP consuming volume units of
// the side opposite the maker direction (selling into taker bids to hedge
// a maker bid fill; buying from taker asks to hedge a maker ask fill). It
// falls back to the top-of-book quote on an empty taker book instead of
// dividing by zero.
func takerVWAPForSide(taker VenueAdapter, pair MarketPair, side Side, volume fixedpoint.Value) fixedpoint.Value {
	hedgeIsBuy := side == SideSell // hedging a maker ask fill means buying on taker
	book := taker.OrderBook(pair.Taker.TradingPair)
	if book != nil {
		if vwap, ok := book.VWAPForVolume(hedgeIsBuy, volume); ok {
			return vwap.ResultPrice
		}
	}
	return taker.Price(pair.Taker.TradingPair, hedgeIsBuy)
}

// DesiredSize runs the sizing pipeline and returns zero when any
// component collapses to zero; callers then skip order placement for this
// side this tick.
func (sz *Sizer) DesiredSize(pair MarketPair, side Side, makerBid, makerAsk fixedpoint.Value) fixedpoint.Value {
	base := sz.baseSize(pair, makerBid, makerAsk)
	base = sz.Maker.QuantizeOrderAmount(pair.Maker.TradingPair, base)
	if base.Sign() <= 0 {
		return fixedpoint.Zero
	}

	makerBaseBal := sz.Maker.AvailableBalance(pair.Maker.BaseAsset)
	makerQuoteBal := sz.Maker.AvailableBalance(pair.Maker.QuoteAsset)
	takerBaseBal := sz.Taker.AvailableBalance(pair.Taker.BaseAsset)
	takerQuoteBal := sz.Taker.AvailableBalance(pair.Taker.QuoteAsset)

	takerVWAP := takerVWAPForSide(sz.Taker, pair, side, base)
	if takerVWAP.Sign() <= 0 {
		return fixedpoint.Zero
	}

	hedgeIsBuy := side == SideSell
	volumeCap := base
	if book := sz.Taker.OrderBook(pair.Taker.TradingPair); book != nil {
		volumeCap = book.AvailableVolume(hedgeIsBuy).Mul(sz.Cfg.OrderSizeTakerVolumeFactor)
	}

	var capped fixedpoint.Value
	switch side {
	case SideBuy:
		byQuote := makerQuoteBal.Div(takerVWAP)
		byTakerBase := takerBaseBal.Mul(sz.Cfg.OrderSizeTakerBalanceFactor)
		capped = minOf(byQuote, byTakerBase, volumeCap, base)
	case SideSell:
		byTakerQuote := takerQuoteBal.Div(takerVWAP).Mul(sz.Cfg.OrderSizeTakerBalanceFactor)
		capped = minOf(makerBaseBal, byTakerQuote, volumeCap, base)
	}

	if capped.Sign() <= 0 {
		return fixedpoint.Zero
	}

	final := sz.Maker.QuantizeOrderAmount(pair.Maker.TradingPair, capped)
	if final.Sign() <= 0 {
		return fixedpoint.Zero
	}
	return final
}

func (sz *Sizer) baseSize(pair MarketPair, makerBid, makerAsk fixedpoint.Value) fixedpoint.Value {
	if sz.Cfg.OrderAmount.Sign() > 0 {
		return sz.Cfg.OrderAmount
	}

	mid := makerBid.Add(makerAsk).Div(fixedpoint.NewFromInt(2))
	if mid.Sign() <= 0 {
		return fixedpoint.Zero
	}

	makerBaseBal := sz.Maker.AvailableBalance(pair.Maker.BaseAsset)
	makerQuoteBal := sz.Maker.AvailableBalance(pair.Maker.QuoteAsset)

	portfolioValue := makerBaseBal.Add(makerQuoteBal.Div(mid))
	return portfolioValue.Mul(sz.Cfg.OrderSizePortfolioRatioLimit)
}

func minOf(values ...fixedpoint.Value) fixedpoint.Value {
	if len(values) == 0 {
		return fixedpoint.Zero
	}
	m := values[0]
	for _, v := range values[1:] {
		if v.Compare(m) < 0 {
			m = v
		}
	}
	return m
}
