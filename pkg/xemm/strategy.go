package xemm

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
)

// ActiveOrderProvider is the external order-tracker surface the Strategy
// Core reads from. Constructing and maintaining the set of active maker
// orders, and the in-flight-cancel set, is the tracker's responsibility;
// this is the contract it must satisfy.
type ActiveOrderProvider interface {
	ActiveOrders(pair MarketPair) []TrackedOrder
	HasInFlightCancel(id ClientOrderId) bool
}

// Strategy is the clock-tick entry point, the readiness gate, fan-out per
// market pair, and event dispatch for the cross-exchange market-making
// engine.
type Strategy struct {
	Pairs    []MarketPair
	Venues   map[string]VenueAdapter
	Orders   ActiveOrderProvider
	FX       FXOracle
	Notifier Notifier
	Cfg      Config
	Log      *logrus.Entry

	tracker *PairTracker
	sampler *PriceSampler
	metrics *Metrics
	breaker *CircuitBreaker
	hedger  *FillHedger

	supervisors map[PairHandle]*Supervisor

	lastTimestamp   time.Time
	everReady       bool
	disconnectLimit *rate.Limiter

	// OnResult, when set, is invoked once per pair per tick with that
	// pair's Evaluate outcome. The external order tracker uses this hook
	// to keep its active-order set in sync with what the Order Supervisor
	// created or cancelled this tick.
	OnResult func(pair MarketPair, result Result)
}

// NewStrategy validates cfg and wires a Strategy over pairs. It returns a
// configuration error when cfg is invalid, or when pairs is empty.
func NewStrategy(cfg Config, pairs []MarketPair, venues map[string]VenueAdapter, fx FXOracle, orders ActiveOrderProvider, notifier Notifier, log *logrus.Entry) (*Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, errConfig("at least one market pair is required")
	}
	if log == nil {
		log = logrus.WithField("strategy", "xemm")
	}

	interval := cfg.StatusReportInterval
	if interval <= 0 {
		interval = time.Minute
	}

	s := &Strategy{
		Pairs:           pairs,
		Venues:          venues,
		Orders:          orders,
		FX:              fx,
		Notifier:        notifier,
		Cfg:             cfg,
		Log:             log,
		tracker:         NewPairTracker(),
		sampler:         NewPriceSampler(),
		metrics:         NewMetrics(),
		breaker:         NewCircuitBreaker(cfg.MaxConsecutiveHedgeRejections),
		supervisors:     make(map[PairHandle]*Supervisor),
		disconnectLimit: rate.NewLimiter(rate.Every(interval), 1),
	}

	s.hedger = NewFillHedger(venues, s.tracker, cfg, s.breaker, s.metrics, notifier, log)

	for _, pair := range pairs {
		maker, ok := venues[pair.Maker.Venue]
		if !ok {
			return nil, errConfig(fmt.Sprintf("no venue adapter registered for maker venue %q", pair.Maker.Venue))
		}
		taker, ok := venues[pair.Taker.Venue]
		if !ok {
			return nil, errConfig(fmt.Sprintf("no venue adapter registered for taker venue %q", pair.Taker.Venue))
		}

		sizer := NewSizer(maker, taker, cfg)
		pricer := NewPricer(maker, taker, s.sampler, fx, cfg)
		s.supervisors[pair.Handle] = NewSupervisor(maker, sizer, pricer, s.tracker, cfg, notifier, s.metrics, log, s.breaker)
	}

	return s, nil
}

// Tracker exposes the Market-Pair Order Tracker for status reporting and
// tests.
func (s *Strategy) Tracker() *PairTracker { return s.tracker }

// Sampler exposes the Price Sampler for status reporting and tests.
func (s *Strategy) Sampler() *PriceSampler { return s.sampler }

// Hedger exposes the Fill Hedger for status reporting and tests.
func (s *Strategy) Hedger() *FillHedger { return s.hedger }

// Breaker exposes the circuit-breaker-lite for status reporting and tests.
func (s *Strategy) Breaker() *CircuitBreaker { return s.breaker }

// Supervisor returns the per-pair Order Supervisor, or nil if pair is not
// configured on this strategy.
func (s *Strategy) Supervisor(pair MarketPair) *Supervisor {
	return s.supervisors[pair.Handle]
}

// Tick is the clock-tick entry point: it advances the tracker, checks
// venue readiness, and evaluates every configured market pair.
func (s *Strategy) Tick(now time.Time) error {
	s.tracker.Advance(now)

	if !s.allVenuesReady() {
		s.Log.Debug("venues not ready, skipping tick")
		return nil
	}

	if !s.everReady {
		s.everReady = true
		s.Log.Info("all venues ready, strategy is now active")
	}

	if s.anyVenueDisconnected() && s.disconnectLimit.Allow() {
		s.Log.Warn("one or more venues reported NOT_CONNECTED network status")
	}

	var combined error
	for _, pair := range s.Pairs {
		if err := s.tickPair(pair, now); err != nil {
			combined = multierr.Append(combined, fmt.Errorf("pair %s: %w", pair, err))
		}
	}

	s.lastTimestamp = now

	if combined != nil {
		s.Log.WithError(combined).Error("errors while processing one or more pairs this tick")
	}

	return nil
}

// tickPair retries any queued fill hedges for a single pair, then evaluates
// its Order Supervisor. Any panic or error here is contained to this pair —
// it never aborts the remaining pairs in this tick.
func (s *Strategy) tickPair(pair MarketPair, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()

	sup := s.supervisors[pair.Handle]
	if sup == nil {
		return fmt.Errorf("no supervisor configured")
	}

	s.hedger.Drain(pair)

	active := s.activeOrdersExcludingInFlightCancels(pair)
	pending := s.hedger.HasPending(pair)

	result := sup.Evaluate(pair, now, active, pending)
	s.metrics.ObserveAntiHysteresis(pair, now.Before(sup.AntiHysteresisTimer(pair)))

	if s.OnResult != nil {
		s.OnResult(pair, result)
	}

	if len(result.Errors) > 0 {
		return multierr.Combine(result.Errors...)
	}
	return nil
}

func (s *Strategy) activeOrdersExcludingInFlightCancels(pair MarketPair) []TrackedOrder {
	if s.Orders == nil {
		return nil
	}
	all := s.Orders.ActiveOrders(pair)
	filtered := make([]TrackedOrder, 0, len(all))
	for _, o := range all {
		if s.Orders.HasInFlightCancel(o.ID) {
			continue
		}
		filtered = append(filtered, o)
	}
	return filtered
}

func (s *Strategy) allVenuesReady() bool {
	for _, v := range s.Venues {
		if !v.Ready() {
			return false
		}
	}
	return true
}

func (s *Strategy) anyVenueDisconnected() bool {
	for _, v := range s.Venues {
		if v.NetworkStatus() == NetworkNotConnected {
			return true
		}
	}
	return false
}

// DidFillOrder dispatches a maker LIMIT fill event into the Fill Hedger.
// Market-order (taker leg) fill events are not accumulated — only the
// maker leg generates a hedge obligation.
func (s *Strategy) DidFillOrder(event Event) {
	if event.OrderType != OrderTypeLimit {
		return
	}
	s.hedger.OnMakerFill(event.OrderID, event.Amount, event.Price, event.Price, event.Time)
}

// DidCompleteBuyOrder handles a BuyOrderCompleted event: if it is a taker
// hedge order, the pair's pending-taker-order count is decremented;
// either way the id is retired from the tracker's live set.
func (s *Strategy) DidCompleteBuyOrder(event Event) {
	s.completeOrder(event)
}

// DidCompleteSellOrder handles a SellOrderCompleted event symmetrically.
func (s *Strategy) DidCompleteSellOrder(event Event) {
	s.completeOrder(event)
}

func (s *Strategy) completeOrder(event Event) {
	pair, ok := s.tracker.Lookup(event.OrderID)
	if !ok {
		return
	}
	if event.OrderType == OrderTypeMarket {
		s.hedger.OnTakerOrderCompleted(pair)
	}
	s.tracker.StopTracking(event.OrderID, event.Time)
}

// DidCancelOrder handles an OrderCancelled event by retiring the id into
// the tracker's shadow window.
func (s *Strategy) DidCancelOrder(event Event) {
	s.tracker.StopTracking(event.OrderID, event.Time)
}

// LastTick returns the timestamp of the most recently processed tick.
func (s *Strategy) LastTick() time.Time { return s.lastTimestamp }
