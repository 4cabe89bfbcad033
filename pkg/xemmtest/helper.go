// Package xemmtest is a hand-written test-fixture package mirroring the
// teacher's own pkg/testing/testhelper (referenced by name in the
// teacher's strategy_test.go): small constructors plus an in-memory fake
// VenueAdapter/OrderBook, used instead of a generated mock so xemm's
// package tests stay self-contained.
package xemmtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/c9s/bbgo/pkg/fixedpoint"

	"github.com/quantedge/xemm-core/pkg/xemm"
)

// Number builds a fixedpoint.Value from a float literal, matching the
// teacher test helper's Number().
func Number(f float64) fixedpoint.Value {
	return fixedpoint.NewFromFloat(f)
}

// PriceVolume is one order-book level.
type PriceVolume struct {
	Price, Volume fixedpoint.Value
}

// Level builds a PriceVolume from float literals.
func Level(price, volume float64) PriceVolume {
	return PriceVolume{Price: Number(price), Volume: Number(volume)}
}

// Pair builds a MarketPair with the given integer handle, sharing one
// trading pair/base/quote across maker and taker legs for convenience.
func Pair(handle int, makerVenue, takerVenue, tradingPair, base, quote string) xemm.MarketPair {
	return xemm.MarketPair{
		Handle: xemm.PairHandle(handle),
		Maker:  xemm.Leg{Venue: makerVenue, TradingPair: tradingPair, BaseAsset: base, QuoteAsset: quote},
		Taker:  xemm.Leg{Venue: takerVenue, TradingPair: tradingPair, BaseAsset: base, QuoteAsset: quote},
	}
}

// Book is a fake OrderBook backed by static bid/ask level slices.
type Book struct {
	Bids []PriceVolume
	Asks []PriceVolume
}

var _ xemm.OrderBook = (*Book)(nil)

func (b *Book) levels(isBuy bool) []PriceVolume {
	if isBuy {
		return b.Asks
	}
	return b.Bids
}

// VWAPForVolume walks the book from the top consuming volume units.
func (b *Book) VWAPForVolume(isBuy bool, volume fixedpoint.Value) (xemm.VolumeAtPrice, bool) {
	levels := b.levels(isBuy)
	if len(levels) == 0 {
		return xemm.VolumeAtPrice{}, false
	}

	remaining := volume
	notional := fixedpoint.Zero
	filled := fixedpoint.Zero

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

// PriceForVolume returns the price of the last level touched consuming
// volume units.
func (b *Book) PriceForVolume(isBuy bool, volume fixedpoint.Value) (fixedpoint.Value, bool) {
	levels := b.levels(isBuy)
	if len(levels) == 0 {
		return fixedpoint.Zero, false
	}

	remaining := volume
	price := levels[0].Price
	for _, lvl := range levels {
		price = lvl.Price
		remaining = remaining.Sub(lvl.Volume)
		if remaining.Sign() <= 0 {
			break
		}
	}
	return price, true
}

// BestBidAsk returns the top of book.
func (b *Book) BestBidAsk() (bid, ask fixedpoint.Value, ok bool) {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return fixedpoint.Zero, fixedpoint.Zero, false
	}
	return b.Bids[0].Price, b.Asks[0].Price, true
}

// AvailableVolume sums the depth resting on the given side.
func (b *Book) AvailableVolume(isBuy bool) fixedpoint.Value {
	total := fixedpoint.Zero
	for _, lvl := range b.levels(isBuy) {
		total = total.Add(lvl.Volume)
	}
	return total
}

// Venue is a fake VenueAdapter over an in-memory balance map and one order
// book per trading pair, with a configurable price tick and lot size.
type Venue struct {
	mu sync.Mutex

	NameStr        string
	ReadyFlag      bool
	Network        xemm.NetworkStatus
	Balances       map[string]fixedpoint.Value
	Available      map[string]fixedpoint.Value
	Books          map[string]*Book
	Tick           fixedpoint.Value
	Lot            fixedpoint.Value
	NextOrderID    int
	RejectOrders   bool
	BuyCalls       []OrderCall
	SellCalls      []OrderCall
	CancelledIDs   []string
}

// OrderCall records one Buy/Sell invocation for assertions in tests.
type OrderCall struct {
	TradingPair string
	Amount      fixedpoint.Value
	Type        xemm.OrderType
	Price       fixedpoint.Value
	TTL         time.Duration
}

var _ xemm.VenueAdapter = (*Venue)(nil)

// NewVenue constructs a ready, connected fake venue with the given tick
// and lot size.
func NewVenue(name string, tick, lot fixedpoint.Value) *Venue {
	return &Venue{
		NameStr:   name,
		ReadyFlag: true,
		Network:   xemm.NetworkConnected,
		Balances:  make(map[string]fixedpoint.Value),
		Available: make(map[string]fixedpoint.Value),
		Books:     make(map[string]*Book),
		Tick:      tick,
		Lot:       lot,
	}
}

func (v *Venue) Name() string                        { return v.NameStr }
func (v *Venue) Ready() bool                         { return v.ReadyFlag }
func (v *Venue) NetworkStatus() xemm.NetworkStatus    { return v.Network }

func (v *Venue) Balance(asset string) fixedpoint.Value { return v.Balances[asset] }

func (v *Venue) AvailableBalance(asset string) fixedpoint.Value {
	if b, ok := v.Available[asset]; ok {
		return b
	}
	return v.Balances[asset]
}

func (v *Venue) SetBalance(asset string, balance, available fixedpoint.Value) {
	v.Balances[asset] = balance
	v.Available[asset] = available
}

func (v *Venue) SetBook(tradingPair string, book *Book) {
	v.Books[tradingPair] = book
}

func (v *Venue) Price(tradingPair string, isBuy bool) fixedpoint.Value {
	book, ok := v.Books[tradingPair]
	if !ok {
		return fixedpoint.Zero
	}
	bid, ask, ok := book.BestBidAsk()
	if !ok {
		return fixedpoint.Zero
	}
	if isBuy {
		return ask
	}
	return bid
}

func (v *Venue) OrderBook(tradingPair string) xemm.OrderBook {
	book, ok := v.Books[tradingPair]
	if !ok {
		return nil
	}
	return book
}

func (v *Venue) OrderPriceQuantum(tradingPair string, price fixedpoint.Value) fixedpoint.Value {
	return v.Tick
}

func (v *Venue) QuantizeOrderAmount(tradingPair string, amount fixedpoint.Value) fixedpoint.Value {
	if v.Lot.Sign() <= 0 {
		return amount
	}
	steps := int64(amount.Div(v.Lot).Float64())
	return fixedpoint.NewFromInt(steps).Mul(v.Lot)
}

func (v *Venue) Buy(tradingPair string, amount fixedpoint.Value, orderType xemm.OrderType, price fixedpoint.Value, ttl time.Duration) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.BuyCalls = append(v.BuyCalls, OrderCall{tradingPair, amount, orderType, price, ttl})
	if v.RejectOrders {
		return "", fmt.Errorf("venue rejected order")
	}
	v.NextOrderID++
	return fmt.Sprintf("venue-%d", v.NextOrderID), nil
}

func (v *Venue) Sell(tradingPair string, amount fixedpoint.Value, orderType xemm.OrderType, price fixedpoint.Value, ttl time.Duration) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.SellCalls = append(v.SellCalls, OrderCall{tradingPair, amount, orderType, price, ttl})
	if v.RejectOrders {
		return "", fmt.Errorf("venue rejected order")
	}
	v.NextOrderID++
	return fmt.Sprintf("venue-%d", v.NextOrderID), nil
}

func (v *Venue) Cancel(tradingPair string, orderID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.CancelledIDs = append(v.CancelledIDs, orderID)
	return nil
}

// OneToOneFX is a trivial 1:1 FXOracle test double.
type OneToOneFX struct{}

func (OneToOneFX) ConvertTokenValue(amount fixedpoint.Value, from, to string) (fixedpoint.Value, error) {
	return amount, nil
}

func (OneToOneFX) AdjustTokenRate(quoteAsset string, price fixedpoint.Value) fixedpoint.Value {
	return price
}

// RateFX converts using a fixed multiplicative rate from `From` to `To`.
type RateFX struct {
	From, To string
	Rate     fixedpoint.Value
}

func (r RateFX) ConvertTokenValue(amount fixedpoint.Value, from, to string) (fixedpoint.Value, error) {
	if from == r.From && to == r.To {
		return amount.Mul(r.Rate), nil
	}
	if from == r.To && to == r.From {
		return amount.Div(r.Rate), nil
	}
	return amount, nil
}

func (r RateFX) AdjustTokenRate(quoteAsset string, price fixedpoint.Value) fixedpoint.Value {
	return price
}

// ActiveOrders is a fake ActiveOrderProvider over a plain slice, with an
// optional in-flight-cancel set.
type ActiveOrders struct {
	Orders         map[xemm.PairHandle][]xemm.TrackedOrder
	InFlightCancel map[xemm.ClientOrderId]bool
}

var _ xemm.ActiveOrderProvider = (*ActiveOrders)(nil)

func NewActiveOrders() *ActiveOrders {
	return &ActiveOrders{
		Orders:         make(map[xemm.PairHandle][]xemm.TrackedOrder),
		InFlightCancel: make(map[xemm.ClientOrderId]bool),
	}
}

func (a *ActiveOrders) Add(order xemm.TrackedOrder) {
	a.Orders[order.Pair.Handle] = append(a.Orders[order.Pair.Handle], order)
}

func (a *ActiveOrders) ActiveOrders(pair xemm.MarketPair) []xemm.TrackedOrder {
	return a.Orders[pair.Handle]
}

func (a *ActiveOrders) HasInFlightCancel(id xemm.ClientOrderId) bool {
	return a.InFlightCancel[id]
}

// NopNotifier drops every notification; useful when a test doesn't care.
type NopNotifier struct{}

func (NopNotifier) Notify(format string, args ...interface{}) {}
