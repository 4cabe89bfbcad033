package xemm

import (
	"time"

	"github.com/c9s/bbgo/pkg/fixedpoint"
)

// SampleWindow bounds the number of retained top-of-book snapshots per
// side, per pair.
const SampleWindow = 12

// SampleInterval is the minimum gap between appended snapshots, measured
// by floor-division tick-boundary crossing rather than wall-clock delta,
// so samples land on stable 5-second slots regardless of tick jitter.
const SampleInterval = 5 * time.Second

type sampleQueue struct {
	values []fixedpoint.Value
}

func (q *sampleQueue) push(v fixedpoint.Value) {
	q.values = append(q.values, v)
	if len(q.values) > SampleWindow {
		q.values = q.values[len(q.values)-SampleWindow:]
	}
}

type pairSamples struct {
	bids    sampleQueue
	asks    sampleQueue
	lastNow time.Time
	hasLast bool
}

// PriceSampler keeps a per-pair sliding window of top bid/ask snapshots
// used to damp pricing decisions against microstructure noise.
type PriceSampler struct {
	perPair map[PairHandle]*pairSamples
}

// NewPriceSampler constructs an empty sampler.
func NewPriceSampler() *PriceSampler {
	return &PriceSampler{perPair: make(map[PairHandle]*pairSamples)}
}

func (s *PriceSampler) entry(pair MarketPair) *pairSamples {
	e, ok := s.perPair[pair.Handle]
	if !ok {
		e = &pairSamples{}
		s.perPair[pair.Handle] = e
	}
	return e
}

func slot(t time.Time) int64 {
	return t.Unix() / int64(SampleInterval/time.Second)
}

// MaybeSample appends one (top-bid, top-ask) snapshot for pair if now
// falls in a later SampleInterval slot than the last recorded sample.
func (s *PriceSampler) MaybeSample(pair MarketPair, now time.Time, topBid, topAsk fixedpoint.Value) {
	e := s.entry(pair)
	if e.hasLast && slot(now) <= slot(e.lastNow) {
		return
	}
	e.bids.push(topBid)
	e.asks.push(topAsk)
	e.lastNow = now
	e.hasLast = true
}

// QueueLen reports how many bid snapshots are retained for pair, for
// metrics and status reporting.
func (s *PriceSampler) QueueLen(pair MarketPair) int {
	return len(s.entry(pair).bids.values)
}

// SmoothedTop returns the conservative inside market for pair: the
// widest-seen bid and the narrowest-seen ask across the sample window
// plus the current snapshot. The asymmetry is deliberate: a brief spoof
// or empty-book moment on either side should not, by itself, induce
// re-pricing.
func (s *PriceSampler) SmoothedTop(pair MarketPair, currentBid, currentAsk fixedpoint.Value) (bid, ask fixedpoint.Value) {
	e := s.entry(pair)

	bid = currentBid
	for _, v := range e.bids.values {
		if v.Compare(bid) > 0 {
			bid = v
		}
	}

	ask = currentAsk
	for _, v := range e.asks.values {
		if v.Compare(ask) < 0 {
			ask = v
		}
	}

	return bid, ask
}
