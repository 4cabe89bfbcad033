package xemm

import (
	"time"

	"github.com/c9s/bbgo/pkg/fixedpoint"
)

// Pricer computes a tick-aligned maker price from taker VWAP plus
// profitability, with FX conversion and near-top clamping.
type Pricer struct {
	Maker   VenueAdapter
	Taker   VenueAdapter
	Sampler *PriceSampler
	FX      FXOracle // nil when maker and taker share a quote currency
	Cfg     Config
}

// NewPricer constructs a Pricer bound to the maker/taker adapters, the
// shared sampler, and an optional FX oracle.
func NewPricer(maker, taker VenueAdapter, sampler *PriceSampler, fx FXOracle, cfg Config) *Pricer {
	return &Pricer{Maker: maker, Taker: taker, Sampler: sampler, FX: fx, Cfg: cfg}
}

// hedgeVWAPStrict is the taker VWAP for the opposite trading direction
// with no empty-book fallback: the Pricer must refuse to quote rather than
// pretend a price exists.
func hedgeVWAPStrict(taker VenueAdapter, pair MarketPair, side Side, volume fixedpoint.Value) (fixedpoint.Value, bool) {
	hedgeIsBuy := side == SideSell
	book := taker.OrderBook(pair.Taker.TradingPair)
	if book == nil {
		return fixedpoint.Zero, false
	}
	vwap, ok := book.VWAPForVolume(hedgeIsBuy, volume)
	if !ok {
		return fixedpoint.Zero, false
	}
	return vwap.ResultPrice, true
}

func (p *Pricer) convert(pair MarketPair, price fixedpoint.Value) (fixedpoint.Value, bool) {
	if pair.Maker.QuoteAsset == pair.Taker.QuoteAsset || p.FX == nil {
		return price, true
	}
	converted, err := p.FX.ConvertTokenValue(price, pair.Taker.QuoteAsset, pair.Maker.QuoteAsset)
	if err != nil {
		return fixedpoint.Zero, false
	}
	return converted, true
}

// EffectiveHedgingPrice is the Pricer computation truncated after the FX
// conversion step: the raw taker VWAP in maker-quote units, used by the
// Order Supervisor for continued-profitability checks. ok is false when
// the taker book can't support size at all.
func (p *Pricer) EffectiveHedgingPrice(pair MarketPair, side Side, size fixedpoint.Value) (fixedpoint.Value, bool) {
	vwap, ok := hedgeVWAPStrict(p.Taker, pair, side, size)
	if !ok {
		return fixedpoint.Zero, false
	}
	return p.convert(pair, vwap)
}

// topOfBook returns the plain best bid/ask when TopDepthTolerance is
// zero, otherwise the price reached after consuming that much depth on
// each side, so a thin top level doesn't by itself set the reference
// price.
func (p *Pricer) topOfBook(pair MarketPair) (bid, ask fixedpoint.Value) {
	bid = p.Maker.Price(pair.Maker.TradingPair, false)
	ask = p.Maker.Price(pair.Maker.TradingPair, true)

	if p.Cfg.TopDepthTolerance.Sign() <= 0 {
		return bid, ask
	}

	book := p.Maker.OrderBook(pair.Maker.TradingPair)
	if book == nil {
		return bid, ask
	}
	if v, ok := book.PriceForVolume(false, p.Cfg.TopDepthTolerance); ok {
		bid = v
	}
	if v, ok := book.PriceForVolume(true, p.Cfg.TopDepthTolerance); ok {
		ask = v
	}
	return bid, ask
}

// MakerPrice computes a tick-aligned maker price for side, or ok=false
// when the taker book cannot support size at any price.
func (p *Pricer) MakerPrice(pair MarketPair, side Side, size fixedpoint.Value, now time.Time) (fixedpoint.Value, bool) {
	currentBid, currentAsk := p.topOfBook(pair)
	p.Sampler.MaybeSample(pair, now, currentBid, currentAsk)
	topBid, topAsk := p.Sampler.SmoothedTop(pair, currentBid, currentAsk)

	hedgingPrice, ok := p.EffectiveHedgingPrice(pair, side, size)
	if !ok {
		return fixedpoint.Zero, false
	}

	tick := p.Maker.OrderPriceQuantum(pair.Maker.TradingPair, hedgingPrice)

	switch side {
	case SideBuy:
		raw := hedgingPrice.Div(fixedpoint.One.Add(p.Cfg.MinProfitability))
		if p.Cfg.AdjustOrderEnabled {
			cap := topBid.Add(tick)
			if raw.Compare(cap) > 0 {
				raw = cap
			}
		}
		return quantizeFloor(raw, tick), true

	case SideSell:
		raw := hedgingPrice.Mul(fixedpoint.One.Add(p.Cfg.MinProfitability))
		if p.Cfg.AdjustOrderEnabled {
			// The ask clamp is deliberately asymmetric with the bid: a
			// `max` raises the ask back up to one tick inside top-of-book
			// rather than letting profitability push it tighter than the
			// market.
			floor := topAsk.Sub(tick)
			if raw.Compare(floor) < 0 {
				raw = floor
			}
		}
		return quantizeCeil(raw, tick), true
	}

	return fixedpoint.Zero, false
}

// stepIndex returns an exact-decimal candidate multiple k*tick together
// with k, using float64 division only to guess k; the guess is then
// walked to the exact floor by comparing k*tick against price with
// fixedpoint arithmetic, so the returned value is never float-derived.
func stepIndex(price, tick fixedpoint.Value) (k int64, candidate fixedpoint.Value) {
	k = int64(price.Div(tick).Float64())
	candidate = fixedpoint.NewFromInt(k).Mul(tick)

	for candidate.Compare(price) > 0 {
		k--
		candidate = fixedpoint.NewFromInt(k).Mul(tick)
	}
	for price.Sub(candidate).Compare(tick) >= 0 {
		k++
		candidate = fixedpoint.NewFromInt(k).Mul(tick)
	}
	return k, candidate
}

// quantizeFloor rounds price down to the nearest multiple of tick. Used
// for the bid side so the quantized price never accidentally crosses the
// profitability threshold.
func quantizeFloor(price, tick fixedpoint.Value) fixedpoint.Value {
	if tick.Sign() <= 0 {
		return price
	}
	_, candidate := stepIndex(price, tick)
	return candidate
}

// quantizeCeil rounds price up to the nearest multiple of tick.
func quantizeCeil(price, tick fixedpoint.Value) fixedpoint.Value {
	if tick.Sign() <= 0 {
		return price
	}
	k, candidate := stepIndex(price, tick)
	if candidate.Compare(price) < 0 {
		k++
		candidate = fixedpoint.NewFromInt(k).Mul(tick)
	}
	return candidate
}
