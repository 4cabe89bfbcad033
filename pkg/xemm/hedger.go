package xemm

import (
	"fmt"
	"sync"
	"time"

	"github.com/c9s/bbgo/pkg/fixedpoint"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// CircuitBreaker is a scaled-down, one-signal circuit breaker: it only
// tracks consecutive taker-hedge rejections per pair and only gates new
// maker order creation, never cancellation. Portfolio-level circuit
// breaking is not implemented.
type CircuitBreaker struct {
	mu          sync.Mutex
	max         int
	consecutive map[PairHandle]int
}

// NewCircuitBreaker constructs a breaker that halts a pair's new-order
// creation after max consecutive hedge rejections. max<=0 disables it.
func NewCircuitBreaker(max int) *CircuitBreaker {
	return &CircuitBreaker{max: max, consecutive: make(map[PairHandle]int)}
}

// RecordResult updates the consecutive-rejection counter for pair.
func (cb *CircuitBreaker) RecordResult(pair MarketPair, accepted bool) {
	if cb.max <= 0 {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if accepted {
		cb.consecutive[pair.Handle] = 0
		return
	}
	cb.consecutive[pair.Handle]++
}

// Halted reports whether pair has tripped the breaker.
func (cb *CircuitBreaker) Halted(pair MarketPair) bool {
	if cb.max <= 0 {
		return false
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.consecutive[pair.Handle] >= cb.max
}

// FillHedger aggregates maker fills and emits sized taker market orders
// to lock in the profit margin.
type FillHedger struct {
	// Venues resolves a pair's taker venue adapter by name, since distinct
	// pairs may hedge on distinct taker venues.
	Venues   map[string]VenueAdapter
	Tracker  *PairTracker
	Cfg      Config
	Breaker  *CircuitBreaker
	Metrics  *Metrics
	Notifier Notifier
	Log      *logrus.Entry

	mu           sync.Mutex
	buyFills     map[PairHandle][]FillRecord
	sellFills    map[PairHandle][]FillRecord
	pendingTaker map[PairHandle]int

	drainGroup singleflight.Group
}

// NewFillHedger constructs a FillHedger bound to the venue registry and
// its collaborators.
func NewFillHedger(venues map[string]VenueAdapter, tracker *PairTracker, cfg Config, breaker *CircuitBreaker, metrics *Metrics, notifier Notifier, log *logrus.Entry) *FillHedger {
	return &FillHedger{
		Venues:       venues,
		Tracker:      tracker,
		Cfg:          cfg,
		Breaker:      breaker,
		Metrics:      metrics,
		Notifier:     notifier,
		Log:          log,
		buyFills:     make(map[PairHandle][]FillRecord),
		sellFills:    make(map[PairHandle][]FillRecord),
		pendingTaker: make(map[PairHandle]int),
	}
}

func (fh *FillHedger) taker(pair MarketPair) VenueAdapter {
	return fh.Venues[pair.Taker.Venue]
}

// HasPending reports whether pair has taker market orders the Strategy
// Core has not yet observed complete — while true, the Order Supervisor
// must not create new maker orders for the pair.
func (fh *FillHedger) HasPending(pair MarketPair) bool {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	return fh.pendingTaker[pair.Handle] > 0
}

// OnTakerOrderCompleted decrements the pending-taker-order count for pair.
// Called from the Strategy Core's BuyOrderCompleted/SellOrderCompleted
// dispatch.
func (fh *FillHedger) OnTakerOrderCompleted(pair MarketPair) {
	fh.mu.Lock()
	defer fh.mu.Unlock()
	if fh.pendingTaker[pair.Handle] > 0 {
		fh.pendingTaker[pair.Handle]--
	}
}

// OnMakerFill records a maker LIMIT fill and attempts to drain its bucket
// immediately. Unknown pairs are dropped silently — that is the expected
// path for fills outside the strategy's universe.
func (fh *FillHedger) OnMakerFill(id ClientOrderId, amount, price, orderPrice fixedpoint.Value, now time.Time) {
	pair, ok := fh.Tracker.Lookup(id)
	if !ok {
		return
	}

	side, ok := id.Side()
	if !ok {
		return
	}

	record := FillRecord{Pair: pair, Side: side, Amount: amount, Price: price, OrderPrice: orderPrice, EventTime: now}

	fh.mu.Lock()
	if side == SideBuy {
		fh.buyFills[pair.Handle] = append(fh.buyFills[pair.Handle], record)
	} else {
		fh.sellFills[pair.Handle] = append(fh.sellFills[pair.Handle], record)
	}
	fh.mu.Unlock()

	if fh.Cfg.LoggingOptions.Has(LogMakerOrderFilled) && fh.Log != nil {
		fh.Log.Infof("maker %s order %s filled %v@%v on %s", side, id, amount, price, pair)
	}

	fh.Drain(pair)
}

// Drain attempts to hedge the full aggregated quantity of pair's pending
// fill buckets. Concurrent calls for the same pair are deduplicated via
// singleflight so a duplicate delivery never double-submits a hedge.
func (fh *FillHedger) Drain(pair MarketPair) {
	key := fmt.Sprintf("%d", pair.Handle)
	_, _, _ = fh.drainGroup.Do(key, func() (interface{}, error) {
		fh.drainBuySide(pair)
		fh.drainSellSide(pair)
		return nil, nil
	})
}

func (fh *FillHedger) drainBuySide(pair MarketPair) {
	fh.mu.Lock()
	fills := fh.buyFills[pair.Handle]
	fh.mu.Unlock()

	total := sumAmounts(fills)
	if total.Sign() <= 0 {
		return
	}

	taker := fh.taker(pair)
	takerBaseAvail := taker.AvailableBalance(pair.Taker.BaseAsset)
	hedgeRaw := minOf(total, takerBaseAvail.Mul(fh.Cfg.OrderSizeTakerBalanceFactor))
	hedge := taker.QuantizeOrderAmount(pair.Taker.TradingPair, hedgeRaw)
	if hedge.Sign() <= 0 {
		// Leave the bucket for the next tick/fill — no partial drain.
		return
	}

	venueID, err := taker.Sell(pair.Taker.TradingPair, hedge, OrderTypeMarket, fixedpoint.Zero, 0)
	fh.recordHedgeOutcome(pair, SideSell, hedge, err)
	if err != nil {
		return
	}
	fh.Tracker.StartTracking(NewClientOrderId(SideSell, venueID), pair)

	fh.mu.Lock()
	// Keep only fills appended while this hedge was being submitted.
	fh.buyFills[pair.Handle] = fh.buyFills[pair.Handle][len(fills):]
	fh.pendingTaker[pair.Handle]++
	fh.mu.Unlock()
}

func (fh *FillHedger) drainSellSide(pair MarketPair) {
	fh.mu.Lock()
	fills := fh.sellFills[pair.Handle]
	fh.mu.Unlock()

	total := sumAmounts(fills)
	if total.Sign() <= 0 {
		return
	}

	taker := fh.taker(pair)
	vwap := takerVWAPForSide(taker, pair, SideSell, total)
	if vwap.Sign() <= 0 {
		return
	}

	takerQuoteAvail := taker.AvailableBalance(pair.Taker.QuoteAsset)
	hedgeRaw := minOf(total, takerQuoteAvail.Div(vwap).Mul(fh.Cfg.OrderSizeTakerBalanceFactor))
	hedge := taker.QuantizeOrderAmount(pair.Taker.TradingPair, hedgeRaw)
	if hedge.Sign() <= 0 {
		return
	}

	venueID, err := taker.Buy(pair.Taker.TradingPair, hedge, OrderTypeMarket, fixedpoint.Zero, 0)
	fh.recordHedgeOutcome(pair, SideBuy, hedge, err)
	if err != nil {
		return
	}
	fh.Tracker.StartTracking(NewClientOrderId(SideBuy, venueID), pair)

	fh.mu.Lock()
	// Keep only fills appended while this hedge was being submitted.
	fh.sellFills[pair.Handle] = fh.sellFills[pair.Handle][len(fills):]
	fh.pendingTaker[pair.Handle]++
	fh.mu.Unlock()
}

func (fh *FillHedger) recordHedgeOutcome(pair MarketPair, hedgeSide Side, qty fixedpoint.Value, err error) {
	if fh.Breaker != nil {
		fh.Breaker.RecordResult(pair, err == nil)
	}

	if err != nil {
		if fh.Log != nil {
			fh.Log.WithError(err).Errorf("taker hedge %s %v on %s rejected, fills left queued for retry", hedgeSide, qty, pair)
		}
		return
	}

	if fh.Cfg.LoggingOptions.Has(LogMakerOrderHedged) && fh.Log != nil {
		fh.Log.Infof("hedged %v via taker %s on %s", qty, hedgeSide, pair)
	}
	if fh.Metrics != nil {
		fh.Metrics.ObserveHedge(pair, hedgeSide, qty)
	}
	if fh.Notifier != nil {
		fh.Notifier.Notify("xemm: hedged %v via taker %s on %s", qty, hedgeSide, pair)
	}
}

func sumAmounts(fills []FillRecord) fixedpoint.Value {
	total := fixedpoint.Zero
	for _, f := range fills {
		total = total.Add(f.Amount)
	}
	return total
}
