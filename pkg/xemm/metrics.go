package xemm

import (
	"github.com/c9s/bbgo/pkg/fixedpoint"
	"github.com/prometheus/client_golang/prometheus"
)

var makerOrderPriceMetrics = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "xemm_maker_order_price",
		Help: "",
	}, []string{"pair", "side"})

var hedgeVolumeMetrics = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xemm_hedge_volume_total",
		Help: "",
	}, []string{"pair", "side"})

var priceSampleQueueLengthMetrics = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "xemm_price_sample_queue_length",
		Help: "",
	}, []string{"pair", "side"})

var antiHysteresisActiveMetrics = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "xemm_anti_hysteresis_active",
		Help: "",
	}, []string{"pair"})

func init() {
	prometheus.MustRegister(
		makerOrderPriceMetrics,
		hedgeVolumeMetrics,
		priceSampleQueueLengthMetrics,
		antiHysteresisActiveMetrics,
	)
}

// Metrics is a thin per-strategy handle over the package-level Prometheus
// vectors, mirroring the teacher's xmaker metrics.go.
type Metrics struct{}

// NewMetrics constructs a Metrics handle.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveMakerPrice records the price of a newly created maker order.
func (m *Metrics) ObserveMakerPrice(pair MarketPair, side Side, price fixedpoint.Value) {
	makerOrderPriceMetrics.With(prometheus.Labels{"pair": pair.String(), "side": side.String()}).Set(price.Float64())
}

// ObserveHedge records a completed taker hedge.
func (m *Metrics) ObserveHedge(pair MarketPair, side Side, qty fixedpoint.Value) {
	hedgeVolumeMetrics.With(prometheus.Labels{"pair": pair.String(), "side": side.String()}).Add(qty.Float64())
}

// ObserveSampleQueueLength records how many snapshots the Price Sampler
// presently retains for pair.
func (m *Metrics) ObserveSampleQueueLength(pair MarketPair, n int) {
	priceSampleQueueLengthMetrics.With(prometheus.Labels{"pair": pair.String(), "side": "bid"}).Set(float64(n))
}

// ObserveAntiHysteresis flags whether pair is presently in its drift
// re-pricing cooldown.
func (m *Metrics) ObserveAntiHysteresis(pair MarketPair, active bool) {
	v := 0.0
	if active {
		v = 1.0
	}
	antiHysteresisActiveMetrics.With(prometheus.Labels{"pair": pair.String()}).Set(v)
}
