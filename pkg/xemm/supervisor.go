package xemm

import (
	"time"

	"github.com/c9s/bbgo/pkg/fixedpoint"
	"github.com/sirupsen/logrus"
)

// Supervisor is the per-pair per-tick state machine over existing maker
// orders (profitability, balance, and drift checks) that also creates
// replacement orders once the pair is clear.
type Supervisor struct {
	Maker    VenueAdapter
	Sizer    *Sizer
	Pricer   *Pricer
	Tracker  *PairTracker
	Cfg      Config
	Notifier Notifier
	Metrics  *Metrics
	Log      *logrus.Entry
	Breaker  *CircuitBreaker

	antiHysteresis map[PairHandle]time.Time
}

// NewSupervisor constructs a Supervisor wired to its collaborators.
func NewSupervisor(maker VenueAdapter, sizer *Sizer, pricer *Pricer, tracker *PairTracker, cfg Config, notifier Notifier, metrics *Metrics, log *logrus.Entry, breaker *CircuitBreaker) *Supervisor {
	return &Supervisor{
		Maker:          maker,
		Sizer:          sizer,
		Pricer:         pricer,
		Tracker:        tracker,
		Cfg:            cfg,
		Notifier:       notifier,
		Metrics:        metrics,
		Log:            log,
		Breaker:        breaker,
		antiHysteresis: make(map[PairHandle]time.Time),
	}
}

// AntiHysteresisTimer reports the current re-pricing cooldown deadline for
// pair (zero time if none has ever been set). Exposed for status
// reporting and tests.
func (sup *Supervisor) AntiHysteresisTimer(pair MarketPair) time.Time {
	return sup.antiHysteresis[pair.Handle]
}

// Result is the outcome of one Evaluate call for one pair.
type Result struct {
	Cancelled []ClientOrderId
	PlacedBid *TrackedOrder
	PlacedAsk *TrackedOrder
	Errors    []error
}

// Evaluate runs the cancel/create state machine for pair. activeOrders
// must already exclude orders with an in-flight cancel (the Strategy
// Core's job, since that set is owned by the external tracker).
// hasPendingTakerHedges is true when the Fill Hedger still holds
// unresolved taker market orders for this pair — while true, no new
// maker order is created this tick.
func (sup *Supervisor) Evaluate(pair MarketPair, now time.Time, activeOrders []TrackedOrder, hasPendingTakerHedges bool) Result {
	var result Result

	var haveBid, haveAsk bool

	for _, order := range activeOrders {
		cancel, reason := sup.shouldCancel(pair, now, order)
		if cancel {
			if err := sup.cancelOrder(pair, order, reason); err != nil {
				result.Errors = append(result.Errors, err)
			}
			result.Cancelled = append(result.Cancelled, order.ID)
			continue
		}

		if order.Side == SideBuy {
			haveBid = true
		} else {
			haveAsk = true
		}
	}

	if hasPendingTakerHedges {
		return result
	}

	if !haveBid {
		if placed, err := sup.tryCreate(pair, SideBuy, now); err != nil {
			result.Errors = append(result.Errors, err)
		} else if placed != nil {
			result.PlacedBid = placed
		}
	}

	if !haveAsk {
		if placed, err := sup.tryCreate(pair, SideSell, now); err != nil {
			result.Errors = append(result.Errors, err)
		} else if placed != nil {
			result.PlacedAsk = placed
		}
	}

	return result
}

type cancelReason int

const (
	cancelNone cancelReason = iota
	cancelProfitability
	cancelBalance
	cancelDrift
)

func (sup *Supervisor) shouldCancel(pair MarketPair, now time.Time, order TrackedOrder) (bool, cancelReason) {
	threshold := sup.Cfg.CancelOrderThreshold
	if sup.Cfg.ActiveOrderCanceling {
		threshold = sup.Cfg.MinProfitability
	}

	h, ok := sup.Pricer.EffectiveHedgingPrice(pair, order.Side, order.Quantity)
	if !ok {
		return true, cancelProfitability
	}

	switch order.Side {
	case SideBuy:
		minAcceptable := order.Price.Mul(fixedpoint.One.Add(threshold))
		if h.Compare(minAcceptable) < 0 {
			return true, cancelProfitability
		}
	case SideSell:
		minAcceptable := h.Mul(fixedpoint.One.Add(threshold))
		if order.Price.Compare(minAcceptable) < 0 {
			return true, cancelProfitability
		}
	}

	if !sup.Cfg.ActiveOrderCanceling {
		// Passive-cancel mode takes no further action beyond
		// profitability; venue-side TTL handles stale orders.
		return false, cancelNone
	}

	if sup.balanceExceeded(pair, order) {
		return true, cancelBalance
	}

	if sup.driftTriggersCancel(pair, now, order) {
		return true, cancelDrift
	}

	return false, cancelNone
}

func (sup *Supervisor) balanceExceeded(pair MarketPair, order TrackedOrder) bool {
	baseBal := sup.Maker.AvailableBalance(pair.Maker.BaseAsset)
	quoteBal := sup.Maker.AvailableBalance(pair.Maker.QuoteAsset)

	limit := baseBal
	if byQuote := quoteBal.Div(order.Price); byQuote.Compare(limit) < 0 {
		limit = byQuote
	}
	limit = sup.Maker.QuantizeOrderAmount(pair.Maker.TradingPair, limit)

	return order.Quantity.Compare(limit) > 0
}

func (sup *Supervisor) driftTriggersCancel(pair MarketPair, now time.Time, order TrackedOrder) bool {
	if deadline, ok := sup.antiHysteresis[pair.Handle]; ok && now.Before(deadline) {
		return false
	}

	suggested, ok := sup.Pricer.MakerPrice(pair, order.Side, order.Quantity, now)
	if !ok || suggested.Compare(order.Price) == 0 {
		return false
	}

	sup.antiHysteresis[pair.Handle] = now.Add(sup.Cfg.AntiHysteresisDuration)
	return true
}

func (sup *Supervisor) cancelOrder(pair MarketPair, order TrackedOrder, reason cancelReason) error {
	if sup.Cfg.LoggingOptions.Has(LogRemovingOrder) && sup.Log != nil {
		sup.Log.Infof("removing %s order %s on %s: %v", order.Side, order.ID, pair, reason)
	}
	return sup.Maker.Cancel(pair.Maker.TradingPair, order.ID.VenueID())
}

// tryCreate sizes, prices, and places a new maker order for side if every
// step succeeds; it returns (nil, nil) when sizing or pricing comes back
// empty, which is the expected "skip this tick" outcome, not an error.
func (sup *Supervisor) tryCreate(pair MarketPair, side Side, now time.Time) (*TrackedOrder, error) {
	if sup.Breaker != nil && sup.Breaker.Halted(pair) {
		return nil, nil
	}

	bid := sup.Maker.Price(pair.Maker.TradingPair, false)
	ask := sup.Maker.Price(pair.Maker.TradingPair, true)

	size := sup.Sizer.DesiredSize(pair, side, bid, ask)
	if size.Sign() <= 0 {
		if sup.Cfg.LoggingOptions.Has(LogNullOrderSize) && sup.Log != nil {
			sup.Log.Infof("null order size for %s %s on %s, skipping", side, pair.Maker.TradingPair, pair)
		}
		return nil, nil
	}

	price, ok := sup.Pricer.MakerPrice(pair, side, size, now)
	if !ok {
		return nil, nil
	}
	if sup.Metrics != nil {
		sup.Metrics.ObserveSampleQueueLength(pair, sup.Pricer.Sampler.QueueLen(pair))
	}

	var ttl time.Duration
	if !sup.Cfg.ActiveOrderCanceling {
		ttl = sup.Cfg.LimitOrderMinExpiration
	}

	var venueID string
	var err error
	if side == SideBuy {
		venueID, err = sup.Maker.Buy(pair.Maker.TradingPair, size, OrderTypeLimit, price, ttl)
	} else {
		venueID, err = sup.Maker.Sell(pair.Maker.TradingPair, size, OrderTypeLimit, price, ttl)
	}
	if err != nil {
		return nil, err
	}
	id := NewClientOrderId(side, venueID)

	order := TrackedOrder{
		ID:        id,
		Pair:      pair,
		Side:      side,
		Price:     price,
		Quantity:  size,
		CreatedAt: now,
		Venue:     pair.Maker.Venue,
	}

	sup.Tracker.StartTracking(id, pair)

	if sup.Cfg.LoggingOptions.Has(LogCreateOrder) && sup.Log != nil {
		sup.Log.Infof("created %s order %s %v@%v on %s", side, id, size, price, pair)
	}
	if sup.Metrics != nil {
		sup.Metrics.ObserveMakerPrice(pair, side, price)
	}
	if sup.Notifier != nil {
		sup.Notifier.Notify("xemm: placed %s order %s %v@%v on %s", side, id, size, price, pair)
	}

	return &order, nil
}
