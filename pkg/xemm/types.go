// Package xemm implements a cross-exchange market-making strategy core:
// on every clock tick it prices and sizes at most one resting bid and one
// resting ask on a maker venue from hedging cost on a taker venue, and
// hedges maker fills with taker market orders.
package xemm

import (
	"fmt"
	"time"

	"github.com/c9s/bbgo/pkg/fixedpoint"
)

// Side is a resting or hedge order side.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// OrderType distinguishes the maker-leg LIMIT order from the taker-leg
// MARKET hedge order. The spec fixes which type goes to which leg: LIMIT
// always to maker, MARKET always to taker.
type OrderType int

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
)

// Leg is one side of a MarketPair: a venue, the trading pair it quotes
// there, and the two assets that make up that pair.
type Leg struct {
	Venue       string
	TradingPair string
	BaseAsset   string
	QuoteAsset  string
}

// PairHandle is a stable integer identity for a MarketPair, used
// internally in place of re-deriving identity from venue trading-pair
// strings, which can collide across pairs that share a leg.
type PairHandle int

// MarketPair is an immutable maker/taker leg pair. Two pairs are distinct
// even when they happen to share a leg.
type MarketPair struct {
	Handle PairHandle
	Maker  Leg
	Taker  Leg
}

func (p MarketPair) String() string {
	return fmt.Sprintf("%s:%s/%s:%s", p.Maker.Venue, p.Maker.TradingPair, p.Taker.Venue, p.Taker.TradingPair)
}

// ClientOrderId is the identifier the Market-Pair Order Tracker and Fill
// Hedger key on. It is always prefixed "buy://" or "sell://" over the
// venue's own order id, so the side can be recovered from the id alone
// without a lookup, while the suffix remains the exact id the venue will
// report back in its fill/cancel event stream.
type ClientOrderId string

const (
	buyPrefix  = "buy://"
	sellPrefix = "sell://"
)

// NewClientOrderId wraps venueOrderID (the id returned by
// VenueAdapter.Buy/Sell) with a side prefix.
func NewClientOrderId(side Side, venueOrderID string) ClientOrderId {
	if side == SideBuy {
		return ClientOrderId(buyPrefix + venueOrderID)
	}
	return ClientOrderId(sellPrefix + venueOrderID)
}

// Side recovers the side encoded in the id's prefix. ok is false for an id
// that is not one we minted.
func (id ClientOrderId) Side() (side Side, ok bool) {
	s := string(id)
	switch {
	case len(s) >= len(buyPrefix) && s[:len(buyPrefix)] == buyPrefix:
		return SideBuy, true
	case len(s) >= len(sellPrefix) && s[:len(sellPrefix)] == sellPrefix:
		return SideSell, true
	default:
		return 0, false
	}
}

// VenueID strips the side prefix and returns the id exactly as the venue
// assigned it, for Cancel calls and venue-side correlation.
func (id ClientOrderId) VenueID() string {
	s := string(id)
	switch {
	case len(s) >= len(buyPrefix) && s[:len(buyPrefix)] == buyPrefix:
		return s[len(buyPrefix):]
	case len(s) >= len(sellPrefix) && s[:len(sellPrefix)] == sellPrefix:
		return s[len(sellPrefix):]
	default:
		return s
	}
}

// TrackedOrder is a read-only view of a resting maker order. Ownership
// lives in the external order tracker; the core only reads and asks for
// cancellation.
type TrackedOrder struct {
	ID         ClientOrderId
	Pair       MarketPair
	Side       Side
	Price      fixedpoint.Value
	Quantity   fixedpoint.Value
	CreatedAt  time.Time
	Venue      string
}

// FillRecord is one maker fill awaiting hedge. Buffered per pair, per
// side, in the Fill Hedger.
type FillRecord struct {
	Pair       MarketPair
	Side       Side
	Amount     fixedpoint.Value
	Price      fixedpoint.Value
	OrderPrice fixedpoint.Value
	EventTime  time.Time
}

// LogOption is a bit in the logging_options bitmask selecting an optional
// log class.
type LogOption uint32

const (
	LogNullOrderSize LogOption = 1 << iota
	LogRemovingOrder
	LogAdjustOrder
	LogCreateOrder
	LogMakerOrderFilled
	LogStatusReport
	LogMakerOrderHedged
)

// Has reports whether the given flag is set in the mask.
func (m LogOption) Has(flag LogOption) bool {
	return m&flag != 0
}

// Config is the set of tunables controlling sizing, pricing, and order
// lifecycle behavior for one strategy instance.
type Config struct {
	MinProfitability fixedpoint.Value `yaml:"min_profitability" mapstructure:"min_profitability"`

	// OrderAmount is an absolute size override in base units; zero means
	// "use the portfolio-ratio cap instead".
	OrderAmount fixedpoint.Value `yaml:"order_amount" mapstructure:"order_amount"`

	OrderSizeTakerVolumeFactor  fixedpoint.Value `yaml:"order_size_taker_volume_factor" mapstructure:"order_size_taker_volume_factor"`
	OrderSizeTakerBalanceFactor fixedpoint.Value `yaml:"order_size_taker_balance_factor" mapstructure:"order_size_taker_balance_factor"`
	OrderSizePortfolioRatioLimit fixedpoint.Value `yaml:"order_size_portfolio_ratio_limit" mapstructure:"order_size_portfolio_ratio_limit"`

	AdjustOrderEnabled  bool             `yaml:"adjust_order_enabled" mapstructure:"adjust_order_enabled"`
	ActiveOrderCanceling bool            `yaml:"active_order_canceling" mapstructure:"active_order_canceling"`
	CancelOrderThreshold fixedpoint.Value `yaml:"cancel_order_threshold" mapstructure:"cancel_order_threshold"`

	AntiHysteresisDuration time.Duration `yaml:"anti_hysteresis_duration" mapstructure:"anti_hysteresis_duration"`
	LimitOrderMinExpiration time.Duration `yaml:"limit_order_min_expiration" mapstructure:"limit_order_min_expiration"`

	TopDepthTolerance fixedpoint.Value `yaml:"top_depth_tolerance" mapstructure:"top_depth_tolerance"`

	LoggingOptions LogOption `yaml:"logging_options" mapstructure:"logging_options"`

	// MaxConsecutiveHedgeRejections gates the circuit-breaker-lite. Zero
	// disables it.
	MaxConsecutiveHedgeRejections int `yaml:"max_consecutive_hedge_rejections" mapstructure:"max_consecutive_hedge_rejections"`

	StatusReportInterval time.Duration `yaml:"status_report_interval" mapstructure:"status_report_interval"`
}

// Validate enforces the construction-time configuration invariants:
// out-of-range ratios and the like are fatal and refuse to start.
func (c Config) Validate() error {
	if c.MinProfitability.Sign() < 0 {
		return errConfig("min_profitability must not be negative")
	}
	if c.OrderSizeTakerVolumeFactor.Sign() < 0 || c.OrderSizeTakerVolumeFactor.Compare(fixedpoint.One) > 0 {
		return errConfig("order_size_taker_volume_factor must be in [0, 1]")
	}
	if c.OrderSizeTakerBalanceFactor.Sign() < 0 || c.OrderSizeTakerBalanceFactor.Compare(fixedpoint.One) > 0 {
		return errConfig("order_size_taker_balance_factor must be in [0, 1]")
	}
	if c.OrderSizePortfolioRatioLimit.Sign() < 0 || c.OrderSizePortfolioRatioLimit.Compare(fixedpoint.One) > 0 {
		return errConfig("order_size_portfolio_ratio_limit must be in [0, 1]")
	}
	if !c.ActiveOrderCanceling && c.CancelOrderThreshold.Sign() < 0 {
		return errConfig("cancel_order_threshold must not be negative")
	}
	if c.AntiHysteresisDuration < 0 {
		return errConfig("anti_hysteresis_duration must not be negative")
	}
	return nil
}
