package xemm

import (
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/leekchan/accounting"

	"github.com/c9s/bbgo/pkg/fixedpoint"
)

var statusMoney = accounting.Accounting{Symbol: "", Precision: 4}

// FormatStatus renders a human-readable snapshot of every configured pair:
// each active order's price and quantity with its effective hedging price
// and profitability badge, then the anti-hysteresis cooldown remaining and
// whether a taker hedge is in flight. Top of book and pending fill buckets
// are not shown. It never panics on a pair with no active orders or an
// empty book — those cells render as "—".
func (s *Strategy) FormatStatus(now time.Time) string {
	var b strings.Builder
	b.WriteString("xemm strategy status\n")

	t := table.NewWriter()
	t.AppendHeader(table.Row{"pair", "side", "price", "qty", "hedging px", "profitable"})

	for _, pair := range s.Pairs {
		sup := s.supervisors[pair.Handle]
		active := s.activeOrdersExcludingInFlightCancels(pair)

		if len(active) == 0 {
			t.AppendRow(table.Row{pair.String(), "—", "—", "—", "—", "—"})
			continue
		}

		for _, order := range active {
			hedgingPx := "—"
			profitableCell := "—"

			if sup != nil {
				if h, ok := sup.Pricer.EffectiveHedgingPrice(pair, order.Side, order.Quantity); ok {
					hedgingPx = statusMoney.FormatMoney(h.Float64())
					profitableCell = profitabilityBadge(order.Side, order.Price, h, s.Cfg)
				}
			}

			t.AppendRow(table.Row{
				pair.String(),
				order.Side.String(),
				statusMoney.FormatMoney(order.Price.Float64()),
				order.Quantity.String(),
				hedgingPx,
				profitableCell,
			})
		}
	}

	b.WriteString(t.Render())
	b.WriteString("\n")

	for _, pair := range s.Pairs {
		deadline := s.supervisors[pair.Handle].AntiHysteresisTimer(pair)
		remaining := time.Duration(0)
		if deadline.After(now) {
			remaining = deadline.Sub(now)
		}
		b.WriteString(pair.String())
		b.WriteString(": anti-hysteresis remaining ")
		b.WriteString(remaining.String())
		if s.hedger.HasPending(pair) {
			b.WriteString(" (taker hedge in flight)")
		}
		b.WriteString("\n")
	}

	return b.String()
}

// profitabilityBadge color-codes an order's edge against its cancel
// threshold: green comfortably inside it, yellow near it, red if it would
// be cancelled this tick.
func profitabilityBadge(side Side, orderPrice, hedgingPrice fixedpoint.Value, cfg Config) string {
	threshold := cfg.CancelOrderThreshold
	if cfg.ActiveOrderCanceling {
		threshold = cfg.MinProfitability
	}

	var edge fixedpoint.Value
	switch side {
	case SideBuy:
		edge = hedgingPrice.Div(orderPrice).Sub(fixedpoint.One)
	case SideSell:
		edge = orderPrice.Div(hedgingPrice).Sub(fixedpoint.One)
	}

	switch {
	case edge.Compare(threshold) < 0:
		return color.RedString("cancel")
	case edge.Compare(threshold.Mul(fixedpoint.NewFromFloat(1.5))) < 0:
		return color.YellowString("tight")
	default:
		return color.GreenString("ok")
	}
}
