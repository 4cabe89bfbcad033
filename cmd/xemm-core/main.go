// Command xemm-core runs the cross-exchange market-making strategy
// engine against the in-repo paper venue, or prints a point-in-time
// status snapshot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/c9s/bbgo/pkg/fixedpoint"

	"github.com/quantedge/xemm-core/internal/config"
	"github.com/quantedge/xemm-core/internal/logging"
	"github.com/quantedge/xemm-core/internal/notify"
	"github.com/quantedge/xemm-core/internal/orderstore"
	"github.com/quantedge/xemm-core/pkg/papervenue"
	"github.com/quantedge/xemm-core/pkg/xemm"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "xemm-core",
		Short: "cross-exchange market-making strategy engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")

	root.AddCommand(runCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "run the strategy loop against the paper venue until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoop()
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "build the strategy once and print format_status()",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, _, err := build()
			if err != nil {
				return err
			}
			now := time.Now()
			if err := s.Tick(now); err != nil {
				return err
			}
			fmt.Println(s.FormatStatus(now))
			return nil
		},
	}
}

func runLoop() error {
	s, venues, interval, err := build()
	if err != nil {
		return err
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			for _, v := range venues {
				v.Step()
			}
			if err := s.Tick(now); err != nil {
				logrus.WithError(err).Error("tick failed")
			}
		}
	}
}

func build() (*xemm.Strategy, []*papervenue.Venue, time.Duration, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, 0, err
	}

	log := logging.Setup(cfg.LogFile)
	entry := log.WithField("strategy", "xemm")

	venueAdapters := make(map[string]xemm.VenueAdapter)
	var paperVenues []*papervenue.Venue
	for _, vc := range cfg.Venues {
		balances := make(map[string]fixedpoint.Value, len(vc.Balances))
		for asset, amt := range vc.Balances {
			balances[asset] = fixedpoint.NewFromFloat(amt)
		}
		pv := papervenue.New(papervenue.Config{
			Name:       vc.Name,
			Mid:        fixedpoint.NewFromFloat(vc.Mid),
			SpreadBps:  fixedpoint.NewFromFloat(vc.SpreadBps),
			DepthLevel: fixedpoint.NewFromFloat(vc.DepthLevel),
			LevelCount: vc.LevelCount,
			Tick:       fixedpoint.NewFromFloat(vc.Tick),
			Lot:        fixedpoint.NewFromFloat(vc.Lot),
			DriftBps:   fixedpoint.NewFromFloat(vc.DriftBps),
		}, balances, time.Now().UnixNano())
		venueAdapters[vc.Name] = pv
		paperVenues = append(paperVenues, pv)
	}

	var pairs []xemm.MarketPair
	for i, pc := range cfg.MarketPairs {
		pair := xemm.MarketPair{
			Handle: xemm.PairHandle(i + 1),
			Maker:  xemm.Leg{Venue: pc.MakerVenue, TradingPair: pc.TradingPair, BaseAsset: pc.BaseAsset, QuoteAsset: pc.QuoteAsset},
			Taker:  xemm.Leg{Venue: pc.TakerVenue, TradingPair: pc.TradingPair, BaseAsset: pc.BaseAsset, QuoteAsset: pc.QuoteAsset},
		}
		pairs = append(pairs, pair)

		if pv, ok := venueAdapters[pc.MakerVenue].(*papervenue.Venue); ok {
			pv.Seed(pc.TradingPair)
		}
		if pv, ok := venueAdapters[pc.TakerVenue].(*papervenue.Venue); ok {
			pv.Seed(pc.TradingPair)
		}
	}

	store := orderstore.New()
	notifier := notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel, entry)

	s, err := xemm.NewStrategy(cfg.Strategy, pairs, venueAdapters, nil, store, notifier, entry)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("building strategy: %w", err)
	}
	s.OnResult = store.ApplyResult

	return s, paperVenues, cfg.TickInterval, nil
}
