package app

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/rfyang/arbscan/internal/collector"
	"github.com/rfyang/arbscan/internal/detector"
	"github.com/rfyang/arbscan/internal/domain"
	"github.com/rfyang/arbscan/internal/executor"
	"github.com/rfyang/arbscan/internal/feed"
	"github.com/rfyang/arbscan/internal/scheduler"
)

// binanceStreamURL is the public combined-stream endpoint for the live quote
// feed.
const binanceStreamURL = "wss://stream.binance.com:9443"

// MonitorMode runs the detection cycle with order placement suppressed:
// opportunities are logged, published, and recorded, but no venue ever
// receives an order.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.runCycle(ctx, deps, true)
}

// TradeMode runs the detection cycle with single-leg execution enabled.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")
	return a.runCycle(ctx, deps, a.cfg.Executor.DryRun)
}

// runCycle assembles the collector/detector/executor pipeline, the optional
// live feed and archiver, and blocks until the context is cancelled. Any
// sub-task error cancels the group and propagates.
func (a *App) runCycle(ctx context.Context, deps *Dependencies, dryRun bool) error {
	col := collector.New(collector.Config{
		Registry: deps.Registry,
		Cache:    deps.QuoteCache,
		Logger:   a.logger,
	})

	det, err := detector.New(detector.Config{
		Fees:           deps.Fees,
		Venues:         a.cfg.EnabledVenues(),
		MinProfit:      a.cfg.Detector.MinProfit,
		SlippageBuffer: a.cfg.Detector.SlippageBuffer,
		Logger:         a.logger,
	})
	if err != nil {
		return err
	}

	execCfg := executor.Config{
		Registry:    deps.Registry,
		Fees:        deps.Fees,
		NotionalCap: a.cfg.Executor.NotionalCap,
		MaxSellBase: a.cfg.Executor.MaxSellBase,
		DryRun:      dryRun,
		OppStore:    deps.OppStore,
		OrderStore:  deps.OrderStore,
		Logger:      a.logger,
	}
	if deps.Notifier != nil {
		execCfg.Notifier = deps.Notifier
	}
	exec := executor.New(execCfg)

	sched := scheduler.New(scheduler.Config{
		Instruments: a.cfg.ParsedInstruments(),
		Interval:    a.cfg.Scheduler.Interval.Duration,
		Collector:   col,
		Detector:    det,
		Executor:    exec,
		Bus:         deps.SignalBus,
		Logger:      a.logger,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(ctx)
	})

	// Live quote feed keeps the cache warm between polling ticks.
	if deps.QuoteCache != nil && a.venueEnabled("binance") {
		wsFeed := feed.NewBinanceWSFeed(binanceStreamURL, a.cfg.ParsedInstruments(),
			func(ctx context.Context, q domain.PriceQuote) {
				if err := deps.QuoteCache.SetQuote(ctx, q); err != nil {
					a.logger.Warn("feed cache write failed", slog.String("error", err.Error()))
				}
			}, a.logger)
		g.Go(func() error {
			return wsFeed.Run(ctx)
		})
	}

	if deps.Archiver != nil {
		interval := a.cfg.Archive.Interval.Duration
		g.Go(func() error {
			return deps.Archiver.RunPeriodically(ctx, interval)
		})
	}

	return g.Wait()
}

func (a *App) venueEnabled(name string) bool {
	vc, ok := a.cfg.Venues[name]
	return ok && vc.Enabled
}
