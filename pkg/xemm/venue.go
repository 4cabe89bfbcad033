package xemm

import (
	"time"

	"github.com/c9s/bbgo/pkg/fixedpoint"
)

// NetworkStatus mirrors a venue connector's connectivity state.
type NetworkStatus int

const (
	NetworkConnected NetworkStatus = iota
	NetworkNotConnected
)

// VolumeAtPrice is one level of a VWAP/price-for-volume result.
type VolumeAtPrice struct {
	ResultPrice fixedpoint.Value
}

// OrderBook is the order-book surface the core consumes. Construction and
// maintenance of the book are the venue connector's job — the core only
// reads.
type OrderBook interface {
	// VWAPForVolume returns the volume-weighted average price to fill
	// volume units starting from the top of the side that fills a buy
	// (isBuy=true asks the ask side, isBuy=false asks the bid side). It
	// returns ok=false on an empty book instead of raising, so callers can
	// treat "no liquidity" as a plain value rather than an exception.
	VWAPForVolume(isBuy bool, volume fixedpoint.Value) (VolumeAtPrice, bool)

	// PriceForVolume returns the single price that would be reached after
	// consuming volume units of depth (used for top-of-book-with-depth).
	PriceForVolume(isBuy bool, volume fixedpoint.Value) (fixedpoint.Value, bool)

	// BestBidAsk returns the unadjusted top of book.
	BestBidAsk() (bid, ask fixedpoint.Value, ok bool)

	// AvailableVolume returns the total depth resting on the given side,
	// used to cap order size as a fraction of hedgeable taker volume
	// (Config.OrderSizeTakerVolumeFactor).
	AvailableVolume(isBuy bool) fixedpoint.Value
}

// VenueAdapter is the per-venue surface the core consumes. Real exchange
// connectors (REST/WebSocket, auth, order lifecycle) implement this
// contract.
type VenueAdapter interface {
	Name() string
	Ready() bool
	NetworkStatus() NetworkStatus

	Balance(asset string) fixedpoint.Value
	AvailableBalance(asset string) fixedpoint.Value

	// Price returns the top of book on the side that would fill a trade
	// in direction isBuy.
	Price(tradingPair string, isBuy bool) fixedpoint.Value

	OrderBook(tradingPair string) OrderBook

	OrderPriceQuantum(tradingPair string, price fixedpoint.Value) fixedpoint.Value
	QuantizeOrderAmount(tradingPair string, amount fixedpoint.Value) fixedpoint.Value

	// Buy/Sell submit an order and return its venue-assigned id. ttl of
	// zero means no expiration is attached.
	Buy(tradingPair string, amount fixedpoint.Value, orderType OrderType, price fixedpoint.Value, ttl time.Duration) (string, error)
	Sell(tradingPair string, amount fixedpoint.Value, orderType OrderType, price fixedpoint.Value, ttl time.Duration) (string, error)
	Cancel(tradingPair string, orderID string) error
}

// FXOracle converts amounts and display prices across quote currencies.
type FXOracle interface {
	ConvertTokenValue(amount fixedpoint.Value, from, to string) (fixedpoint.Value, error)
	AdjustTokenRate(quoteAsset string, price fixedpoint.Value) fixedpoint.Value
}

// EventType distinguishes the event-bus messages the core dispatches on.
type EventType int

const (
	EventOrderFilled EventType = iota
	EventBuyOrderCompleted
	EventSellOrderCompleted
	EventOrderCancelled
)

// Event is a single delivery from the external event bus.
type Event struct {
	Type      EventType
	OrderID   ClientOrderId
	OrderType OrderType
	Side      Side
	Amount    fixedpoint.Value
	Price     fixedpoint.Value
	Time      time.Time
}

// Notifier is the ambient notification sink (Slack, etc.) the strategy
// calls when it places a maker order and when a taker hedge is accepted;
// maker fills and circuit-breaker transitions are not notified. It is
// best-effort: a nil Notifier is valid and simply drops messages.
type Notifier interface {
	Notify(format string, args ...interface{})
}
