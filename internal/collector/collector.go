// Package collector gathers best bid/ask quotes from every enabled venue and
// merges them into a single per-instrument snapshot.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rfyang/arbscan/internal/domain"
	"github.com/rfyang/arbscan/internal/venue"
)

// Collector fetches quotes from a set of venue clients. A venue that fails or
// returns an untradeable book is logged and left out of the snapshot; the
// remaining venues still produce a usable result.
type Collector struct {
	registry *venue.Registry
	cache    domain.QuoteCache // optional mirror, may be nil
	timeout  time.Duration
	logger   *slog.Logger
}

// Config holds constructor parameters for Collector.
type Config struct {
	Registry *venue.Registry
	Cache    domain.QuoteCache // nil disables mirroring
	Timeout  time.Duration     // per-venue fetch budget
	Logger   *slog.Logger
}

// New creates a Collector.
func New(cfg Config) *Collector {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Collector{
		registry: cfg.Registry,
		cache:    cfg.Cache,
		timeout:  timeout,
		logger:   cfg.Logger.With(slog.String("component", "collector")),
	}
}

// Collect fetches the instrument's book from every registered venue in
// parallel and returns the merged snapshot. Venues are fetched concurrently
// but the snapshot is assembled under one lock so callers always see a
// consistent view taken within a single cycle.
func (c *Collector) Collect(ctx context.Context, inst domain.Instrument) (domain.Snapshot, error) {
	snap := domain.Snapshot{
		Instrument: inst,
		Quotes:     make(map[string]domain.PriceQuote),
		TakenAt:    time.Now().UTC(),
	}

	var mu sync.Mutex
	g := new(errgroup.Group)

	for _, client := range c.registry.All() {
		client := client
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			quote, err := client.FetchTicker(fetchCtx, inst)
			if err != nil {
				c.logger.Warn("ticker fetch failed",
					slog.String("venue", client.Name()),
					slog.String("instrument", inst.Symbol()),
					slog.String("error", err.Error()))
				return nil
			}
			if !quote.Tradeable() {
				c.logger.Warn("untradeable book skipped",
					slog.String("venue", client.Name()),
					slog.String("instrument", inst.Symbol()),
					slog.Float64("bid", quote.Bid),
					slog.Float64("ask", quote.Ask))
				return nil
			}

			mu.Lock()
			snap.Quotes[quote.Venue] = quote
			mu.Unlock()
			return nil
		})
	}

	// Fetch errors are absorbed per venue, so Wait only fails on a
	// cancelled parent context.
	if err := g.Wait(); err != nil {
		return domain.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	c.mirror(ctx, snap)

	c.logger.Debug("snapshot collected",
		slog.String("instrument", inst.Symbol()),
		slog.Int("venues", len(snap.Quotes)))
	return snap, nil
}

// mirror writes the snapshot's quotes to the cache so other consumers (the
// notifier bus, dashboards) can read the latest book without hitting venues.
// Writes are per venue: one failed write is logged and the rest still land.
func (c *Collector) mirror(ctx context.Context, snap domain.Snapshot) {
	if c.cache == nil {
		return
	}
	for _, quote := range snap.Quotes {
		if err := c.cache.SetQuote(ctx, quote); err != nil {
			c.logger.Warn("quote cache write failed",
				slog.String("venue", quote.Venue),
				slog.String("error", err.Error()))
		}
	}
}
