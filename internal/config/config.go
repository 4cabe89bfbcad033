// Package config loads the xemm-core process configuration: a YAML file
// read through viper, overlaid with environment variables, with an
// optional local .env for development.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/c9s/bbgo/pkg/fixedpoint"
	"github.com/quantedge/xemm-core/pkg/xemm"
)

// PairConfig is one market_pairs entry.
type PairConfig struct {
	MakerVenue  string `mapstructure:"maker_venue"`
	TakerVenue  string `mapstructure:"taker_venue"`
	TradingPair string `mapstructure:"trading_pair"`
	BaseAsset   string `mapstructure:"base_asset"`
	QuoteAsset  string `mapstructure:"quote_asset"`
}

// VenueConfig seeds one paper venue instance.
type VenueConfig struct {
	Name       string             `mapstructure:"name"`
	Mid        float64            `mapstructure:"mid"`
	SpreadBps  float64            `mapstructure:"spread_bps"`
	DepthLevel float64            `mapstructure:"depth_level"`
	LevelCount int                `mapstructure:"level_count"`
	Tick       float64            `mapstructure:"tick"`
	Lot        float64            `mapstructure:"lot"`
	DriftBps   float64            `mapstructure:"drift_bps"`
	Balances   map[string]float64 `mapstructure:"balances"`
}

// File is the root of config.yaml. Strategy is decoded separately via
// rawStrategy/toDomain, since mapstructure cannot decode YAML scalars
// directly into fixedpoint.Value.
type File struct {
	Strategy     xemm.Config
	MarketPairs  []PairConfig  `mapstructure:"market_pairs"`
	Venues       []VenueConfig `mapstructure:"venues"`
	TickInterval time.Duration `mapstructure:"tick_interval"`
	Slack        SlackConfig   `mapstructure:"slack"`
	LogFile      string        `mapstructure:"log_file"`
}

// SlackConfig is the optional Slack notification sink wiring.
type SlackConfig struct {
	Token   string `mapstructure:"token"`
	Channel string `mapstructure:"channel"`
}

// Load reads path (YAML), overlays XEMM_-prefixed environment variables,
// and optionally loads a .env file from the working directory for local
// development.
func Load(path string) (*File, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("XEMM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("tick_interval", 3*time.Second)
	v.SetDefault("strategy.order_size_taker_volume_factor", 1.0)
	v.SetDefault("strategy.order_size_taker_balance_factor", 1.0)
	v.SetDefault("strategy.order_size_portfolio_ratio_limit", 1.0)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var raw struct {
		Strategy     rawStrategy   `mapstructure:"strategy"`
		MarketPairs  []PairConfig  `mapstructure:"market_pairs"`
		Venues       []VenueConfig `mapstructure:"venues"`
		TickInterval time.Duration `mapstructure:"tick_interval"`
		Slack        SlackConfig   `mapstructure:"slack"`
		LogFile      string        `mapstructure:"log_file"`
	}
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}

	return &File{
		Strategy:     raw.Strategy.toDomain(),
		MarketPairs:  raw.MarketPairs,
		Venues:       raw.Venues,
		TickInterval: raw.TickInterval,
		Slack:        raw.Slack,
		LogFile:      raw.LogFile,
	}, nil
}

// rawStrategy mirrors xemm.Config with plain float64/int fields, since
// viper/mapstructure cannot decode directly into fixedpoint.Value.
type rawStrategy struct {
	MinProfitability             float64 `mapstructure:"min_profitability"`
	OrderAmount                  float64 `mapstructure:"order_amount"`
	OrderSizeTakerVolumeFactor   float64 `mapstructure:"order_size_taker_volume_factor"`
	OrderSizeTakerBalanceFactor  float64 `mapstructure:"order_size_taker_balance_factor"`
	OrderSizePortfolioRatioLimit float64 `mapstructure:"order_size_portfolio_ratio_limit"`
	AdjustOrderEnabled           bool    `mapstructure:"adjust_order_enabled"`
	ActiveOrderCanceling         bool    `mapstructure:"active_order_canceling"`
	CancelOrderThreshold         float64 `mapstructure:"cancel_order_threshold"`
	AntiHysteresisDuration       time.Duration `mapstructure:"anti_hysteresis_duration"`
	LimitOrderMinExpiration      time.Duration `mapstructure:"limit_order_min_expiration"`
	TopDepthTolerance            float64 `mapstructure:"top_depth_tolerance"`
	LoggingOptions               []string `mapstructure:"logging_options"`
	MaxConsecutiveHedgeRejections int    `mapstructure:"max_consecutive_hedge_rejections"`
	StatusReportInterval         time.Duration `mapstructure:"status_report_interval"`
}

var logOptionNames = map[string]xemm.LogOption{
	"null_order_size":    xemm.LogNullOrderSize,
	"removing_order":     xemm.LogRemovingOrder,
	"adjust_order":       xemm.LogAdjustOrder,
	"create_order":       xemm.LogCreateOrder,
	"maker_order_filled": xemm.LogMakerOrderFilled,
	"status_report":      xemm.LogStatusReport,
	"maker_order_hedged": xemm.LogMakerOrderHedged,
}

func (r rawStrategy) toDomain() xemm.Config {
	var opts xemm.LogOption
	for _, name := range r.LoggingOptions {
		opts |= logOptionNames[strings.ToLower(name)]
	}

	return xemm.Config{
		MinProfitability:             fixedpoint.NewFromFloat(r.MinProfitability),
		OrderAmount:                  fixedpoint.NewFromFloat(r.OrderAmount),
		OrderSizeTakerVolumeFactor:   fixedpoint.NewFromFloat(r.OrderSizeTakerVolumeFactor),
		OrderSizeTakerBalanceFactor:  fixedpoint.NewFromFloat(r.OrderSizeTakerBalanceFactor),
		OrderSizePortfolioRatioLimit: fixedpoint.NewFromFloat(r.OrderSizePortfolioRatioLimit),
		AdjustOrderEnabled:           r.AdjustOrderEnabled,
		ActiveOrderCanceling:         r.ActiveOrderCanceling,
		CancelOrderThreshold:         fixedpoint.NewFromFloat(r.CancelOrderThreshold),
		AntiHysteresisDuration:       r.AntiHysteresisDuration,
		LimitOrderMinExpiration:      r.LimitOrderMinExpiration,
		TopDepthTolerance:            fixedpoint.NewFromFloat(r.TopDepthTolerance),
		LoggingOptions:               opts,
		MaxConsecutiveHedgeRejections: r.MaxConsecutiveHedgeRejections,
		StatusReportInterval:         r.StatusReportInterval,
	}
}
