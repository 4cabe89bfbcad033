// Package papervenue is the one concrete xemm.VenueAdapter this repo
// ships: an in-memory book seeded from config or a random-walk generator,
// used by `xemm-core run` for demonstration. It is not a fill-matching or
// latency-modeling simulation engine — orders are accepted (any positive
// amount) or rejected immediately, never rest, and change neither the
// book nor the balances.
package papervenue

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/c9s/bbgo/pkg/fixedpoint"

	"github.com/quantedge/xemm-core/pkg/xemm"
)

// Level is one resting synthetic order-book level.
type Level struct {
	Price  fixedpoint.Value
	Volume fixedpoint.Value
}

type book struct {
	bids []Level
	asks []Level
}

var _ xemm.OrderBook = (*book)(nil)

func (b *book) levels(isBuy bool) []Level {
	if isBuy {
		return b.asks
	}
	return b.bids
}

func (b *book) VWAPForVolume(isBuy bool, volume fixedpoint.Value) (xemm.VolumeAtPrice, bool) {
	levels := b.levels(isBuy)
	if len(levels) == 0 {
		return xemm.VolumeAtPrice{}, false
	}

	remaining, notional, filled := volume, fixedpoint.Zero, fixedpoint.Zero
	for _, lvl := range levels {
		take := lvl.Volume
		if take.Compare(remaining) > 0 {
			take = remaining
		}
		notional = notional.Add(take.Mul(lvl.Price))
		filled = filled.Add(take)
		remaining = remaining.Sub(take)
		if remaining.Sign() <= 0 {
			break
		}
	}
	if filled.Sign() <= 0 {
		return xemm.VolumeAtPrice{}, false
	}
	return xemm.VolumeAtPrice{ResultPrice: notional.Div(filled)}, true
}

func (b *book) PriceForVolume(isBuy bool, volume fixedpoint.Value) (fixedpoint.Value, bool) {
	levels := b.levels(isBuy)
	if len(levels) == 0 {
		return fixedpoint.Zero, false
	}
	remaining, price := volume, levels[0].Price
	for _, lvl := range levels {
		price = lvl.Price
		remaining = remaining.Sub(lvl.Volume)
		if remaining.Sign() <= 0 {
			break
		}
	}
	return price, true
}

func (b *book) BestBidAsk() (bid, ask fixedpoint.Value, ok bool) {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return fixedpoint.Zero, fixedpoint.Zero, false
	}
	return b.bids[0].Price, b.asks[0].Price, true
}

func (b *book) AvailableVolume(isBuy bool) fixedpoint.Value {
	total := fixedpoint.Zero
	for _, lvl := range b.levels(isBuy) {
		total = total.Add(lvl.Volume)
	}
	return total
}

// Config seeds one Venue: a starting mid price, spread, depth, and the
// venue's tick/lot grid.
type Config struct {
	Name       string
	Mid        fixedpoint.Value
	SpreadBps  fixedpoint.Value
	DepthLevel fixedpoint.Value
	LevelCount int
	Tick       fixedpoint.Value
	Lot        fixedpoint.Value
	DriftBps   fixedpoint.Value // per-Step random-walk magnitude, 0 disables drift
}

// Venue is an in-memory VenueAdapter backed by a synthetic random-walk
// order book: no fill matching or latency modeling, orders are accepted
// immediately.
type Venue struct {
	mu sync.Mutex

	cfg       Config
	rng       *rand.Rand
	mid       fixedpoint.Value
	books     map[string]*book
	balances  map[string]fixedpoint.Value
	nextOrder int
}

var _ xemm.VenueAdapter = (*Venue)(nil)

// New builds a Venue seeded with cfg and an initial balance set, using
// seed to drive the deterministic random walk.
func New(cfg Config, balances map[string]fixedpoint.Value, seed int64) *Venue {
	v := &Venue{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(seed)),
		mid:      cfg.Mid,
		books:    make(map[string]*book),
		balances: make(map[string]fixedpoint.Value),
	}
	for asset, bal := range balances {
		v.balances[asset] = bal
	}
	return v
}

// Step advances the random walk by one increment and rebuilds every
// tracked trading pair's book around the new mid. Called by the process
// harness's ticker loop before each Strategy.Tick.
func (v *Venue) Step() {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.cfg.DriftBps.Sign() > 0 {
		drift := v.cfg.DriftBps.Div(fixedpoint.NewFromInt(10000))
		direction := fixedpoint.One
		if v.rng.Intn(2) == 0 {
			direction = fixedpoint.NewFromInt(-1)
		}
		v.mid = v.mid.Add(v.mid.Mul(drift).Mul(direction))
	}

	for tradingPair := range v.books {
		v.books[tradingPair] = v.buildBook()
	}
}

// Seed registers tradingPair with a freshly built synthetic book.
func (v *Venue) Seed(tradingPair string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.books[tradingPair] = v.buildBook()
}

func (v *Venue) buildBook() *book {
	spread := v.mid.Mul(v.cfg.SpreadBps).Div(fixedpoint.NewFromInt(10000))
	halfSpread := spread.Div(fixedpoint.NewFromInt(2))

	bids := make([]Level, 0, v.cfg.LevelCount)
	asks := make([]Level, 0, v.cfg.LevelCount)
	for i := 0; i < v.cfg.LevelCount; i++ {
		step := v.cfg.Tick.Mul(fixedpoint.NewFromInt(int64(i)))
		bids = append(bids, Level{Price: v.mid.Sub(halfSpread).Sub(step), Volume: v.cfg.DepthLevel})
		asks = append(asks, Level{Price: v.mid.Add(halfSpread).Add(step), Volume: v.cfg.DepthLevel})
	}
	return &book{bids: bids, asks: asks}
}

func (v *Venue) Name() string                     { return v.cfg.Name }
func (v *Venue) Ready() bool                      { return true }
func (v *Venue) NetworkStatus() xemm.NetworkStatus { return xemm.NetworkConnected }

func (v *Venue) Balance(asset string) fixedpoint.Value {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[asset]
}

func (v *Venue) AvailableBalance(asset string) fixedpoint.Value {
	return v.Balance(asset)
}

func (v *Venue) Price(tradingPair string, isBuy bool) fixedpoint.Value {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.books[tradingPair]
	if !ok {
		return fixedpoint.Zero
	}
	bid, ask, ok := b.BestBidAsk()
	if !ok {
		return fixedpoint.Zero
	}
	if isBuy {
		return ask
	}
	return bid
}

func (v *Venue) OrderBook(tradingPair string) xemm.OrderBook {
	v.mu.Lock()
	defer v.mu.Unlock()
	b, ok := v.books[tradingPair]
	if !ok {
		return nil
	}
	return b
}

func (v *Venue) OrderPriceQuantum(tradingPair string, price fixedpoint.Value) fixedpoint.Value {
	return v.cfg.Tick
}

func (v *Venue) QuantizeOrderAmount(tradingPair string, amount fixedpoint.Value) fixedpoint.Value {
	if v.cfg.Lot.Sign() <= 0 {
		return amount
	}
	steps := int64(amount.Div(v.cfg.Lot).Float64())
	return fixedpoint.NewFromInt(steps).Mul(v.cfg.Lot)
}

func (v *Venue) Buy(tradingPair string, amount fixedpoint.Value, orderType xemm.OrderType, price fixedpoint.Value, ttl time.Duration) (string, error) {
	return v.submit(tradingPair, amount, orderType, price, ttl)
}

func (v *Venue) Sell(tradingPair string, amount fixedpoint.Value, orderType xemm.OrderType, price fixedpoint.Value, ttl time.Duration) (string, error) {
	return v.submit(tradingPair, amount, orderType, price, ttl)
}

func (v *Venue) submit(tradingPair string, amount fixedpoint.Value, orderType xemm.OrderType, price fixedpoint.Value, ttl time.Duration) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("papervenue: non-positive order amount")
	}
	v.nextOrder++
	return fmt.Sprintf("paper-%s-%d", v.cfg.Name, v.nextOrder), nil
}

func (v *Venue) Cancel(tradingPair string, orderID string) error {
	return nil
}
