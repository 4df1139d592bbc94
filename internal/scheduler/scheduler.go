// Package scheduler drives the always-on collect/detect/execute cycle.
package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rfyang/arbscan/internal/domain"
)

// OpportunityChannel is the bus channel cycle results are published on.
const OpportunityChannel = "arbscan:opportunities"

// Collector produces one consistent cross-venue snapshot per instrument.
type Collector interface {
	Collect(ctx context.Context, inst domain.Instrument) (domain.Snapshot, error)
}

// Detector extracts profitable opportunities from a snapshot.
type Detector interface {
	Detect(snap domain.Snapshot) []domain.Opportunity
}

// Executor acts on a single opportunity.
type Executor interface {
	Execute(ctx context.Context, opp domain.Opportunity) error
}

// Scheduler loops over the configured instruments at a fixed interval. It has
// no termination condition of its own: only context cancellation stops it,
// and no per-instrument error ever does.
type Scheduler struct {
	instruments []domain.Instrument
	interval    time.Duration
	collector   Collector
	detector    Detector
	executor    Executor
	bus         domain.SignalBus // optional
	logger      *slog.Logger
}

// Config holds constructor parameters for Scheduler.
type Config struct {
	Instruments []domain.Instrument
	Interval    time.Duration
	Collector   Collector
	Detector    Detector
	Executor    Executor
	Bus         domain.SignalBus
	Logger      *slog.Logger
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{
		instruments: cfg.Instruments,
		interval:    interval,
		collector:   cfg.Collector,
		detector:    cfg.Detector,
		executor:    cfg.Executor,
		bus:         cfg.Bus,
		logger:      cfg.Logger.With(slog.String("component", "scheduler")),
	}
}

// Run executes one cycle immediately, then one per interval until the context
// is cancelled. It always returns the context's error.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		slog.Int("instruments", len(s.instruments)),
		slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle walks every instrument through collect, detect, execute. Failures
// are logged and the cycle moves on to the next instrument.
func (s *Scheduler) runCycle(ctx context.Context) {
	for _, inst := range s.instruments {
		if ctx.Err() != nil {
			return
		}

		snap, err := s.collector.Collect(ctx, inst)
		if err != nil {
			s.logger.Warn("collect failed",
				slog.String("instrument", inst.Symbol()),
				slog.String("error", err.Error()))
			continue
		}
		if len(snap.Quotes) < 2 {
			s.logger.Debug("not enough venues this cycle",
				slog.String("instrument", inst.Symbol()),
				slog.Int("venues", len(snap.Quotes)))
			continue
		}

		opps := s.detector.Detect(snap)
		for _, opp := range opps {
			s.publish(ctx, opp)
			if err := s.executor.Execute(ctx, opp); err != nil {
				s.logger.Warn("execute failed",
					slog.String("opp_id", opp.ID),
					slog.String("error", err.Error()))
			}
		}
	}
}

func (s *Scheduler) publish(ctx context.Context, opp domain.Opportunity) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(opp)
	if err != nil {
		s.logger.Warn("opportunity marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, OpportunityChannel, payload); err != nil {
		s.logger.Warn("opportunity publish failed",
			slog.String("opp_id", opp.ID),
			slog.String("error", err.Error()))
	}
}
