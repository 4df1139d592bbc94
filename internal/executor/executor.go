// Package executor turns detected opportunities into single-leg market
// orders on the venue the process holds credentials for.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rfyang/arbscan/internal/domain"
	"github.com/rfyang/arbscan/internal/venue"
)

// Notifier pushes operator alerts for execution events. Satisfied by
// notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Executor places at most one market order per opportunity: the leg on an
// authenticated venue. The counter-leg is reported as a manual action and
// never auto-executed, so a failed order leaves nothing to roll back.
type Executor struct {
	registry    *venue.Registry
	fees        domain.FeeTable
	notionalCap float64 // per-trade quote-currency ceiling on buy legs
	maxSellBase float64 // per-trade base-currency ceiling on sell legs
	dryRun      bool

	oppStore   domain.OpportunityStore // optional
	orderStore domain.OrderStore       // optional
	notifier   Notifier                // optional
	logger     *slog.Logger

	// A balance check and the order it sizes must not interleave with
	// another pair on the same venue, or both would size against the
	// full balance.
	muMu     sync.Mutex
	venueMus map[string]*sync.Mutex
}

// Config holds constructor parameters for Executor.
type Config struct {
	Registry    *venue.Registry
	Fees        domain.FeeTable
	NotionalCap float64
	MaxSellBase float64
	DryRun      bool

	OppStore   domain.OpportunityStore
	OrderStore domain.OrderStore
	Notifier   Notifier
	Logger     *slog.Logger
}

// New creates an Executor.
func New(cfg Config) *Executor {
	return &Executor{
		registry:    cfg.Registry,
		fees:        cfg.Fees,
		notionalCap: cfg.NotionalCap,
		maxSellBase: cfg.MaxSellBase,
		dryRun:      cfg.DryRun,
		oppStore:    cfg.OppStore,
		orderStore:  cfg.OrderStore,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger.With(slog.String("component", "executor")),
		venueMus:    make(map[string]*sync.Mutex),
	}
}

// Execute records the opportunity, picks the executable leg, sizes it against
// a fresh balance, and places one market order. Execution failures are logged
// and absorbed; only a cancelled context propagates, so one rejected order
// never stops the cycle.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.recordOpportunity(ctx, opp)
	e.notify(ctx, "opportunity", "Opportunity detected",
		fmt.Sprintf("%s: buy %s at %s, sell %s at %s (net %.2f%%)",
			opp.Instrument.Symbol(), opp.BuyVenue, formatAmount(opp.BuyPrice),
			opp.SellVenue, formatAmount(opp.SellPrice), opp.ProfitPct()))

	side, venueName, ok := e.chooseLeg(opp)
	if !ok {
		e.logger.Info("no authenticated venue for pair, manual action required",
			slog.String("opp_id", opp.ID),
			slog.String("buy_venue", opp.BuyVenue),
			slog.String("sell_venue", opp.SellVenue))
		return nil
	}

	client, found := e.registry.Get(venueName)
	if !found {
		e.logger.Error("authenticated venue has no client",
			slog.String("opp_id", opp.ID),
			slog.String("venue", venueName))
		return nil
	}

	mu := e.mutexFor(venueName)
	mu.Lock()
	defer mu.Unlock()

	amount, err := e.sizeLeg(ctx, client, opp, side)
	if err != nil {
		e.logger.Warn("balance fetch failed, skipping opportunity",
			slog.String("opp_id", opp.ID),
			slog.String("venue", venueName),
			slog.String("error", err.Error()))
		return nil
	}
	if amount <= 0 {
		e.logger.Warn("insufficient funds, skipping opportunity",
			slog.String("opp_id", opp.ID),
			slog.String("venue", venueName),
			slog.String("side", string(side)))
		return nil
	}

	e.logger.Info("sized execution leg",
		slog.String("opp_id", opp.ID),
		slog.String("venue", venueName),
		slog.String("side", string(side)),
		slog.Float64("amount", amount),
		slog.String("counter_leg", e.counterLeg(opp, side)))

	if e.dryRun {
		e.logger.Info("dry run, order suppressed",
			slog.String("opp_id", opp.ID),
			slog.String("venue", venueName))
		return nil
	}

	intent := domain.TradeIntent{
		Venue:      venueName,
		Side:       side,
		Instrument: opp.Instrument,
		Amount:     amount,
	}
	result, err := client.PlaceMarketOrder(ctx, intent)
	if err != nil {
		e.logger.Error("order placement failed",
			slog.String("opp_id", opp.ID),
			slog.String("venue", venueName),
			slog.String("error", err.Error()))
		e.recordOrder(ctx, opp, intent, domain.OrderResult{Status: domain.OrderStatusRejected}, err)
		e.notify(ctx, "order_failed", "Order failed",
			fmt.Sprintf("%s %s %s on %s: %v", side, formatAmount(amount), opp.Instrument.Symbol(), venueName, err))
		return nil
	}

	e.logger.Info("order placed",
		slog.String("opp_id", opp.ID),
		slog.String("venue", venueName),
		slog.String("order_id", result.OrderID),
		slog.String("status", string(result.Status)))

	e.recordOrder(ctx, opp, intent, result, nil)
	e.markExecuted(ctx, opp.ID)
	e.notify(ctx, "order_placed", "Order placed",
		fmt.Sprintf("%s %s %s on %s (net %.2f%%), counter-leg: %s",
			side, formatAmount(amount), opp.Instrument.Symbol(), venueName,
			opp.ProfitPct(), e.counterLeg(opp, side)))
	return nil
}

// chooseLeg picks which leg to execute. Exactly one authenticated venue means
// that leg. With both authenticated the lower-taker-fee leg wins, name order
// breaking ties, so the choice is deterministic across restarts. Neither
// authenticated means skip.
func (e *Executor) chooseLeg(opp domain.Opportunity) (domain.OrderSide, string, bool) {
	buyCfg, buyOK := e.fees.Lookup(opp.BuyVenue)
	sellCfg, sellOK := e.fees.Lookup(opp.SellVenue)
	buyAuth := buyOK && buyCfg.Authenticated
	sellAuth := sellOK && sellCfg.Authenticated

	switch {
	case buyAuth && sellAuth:
		if buyCfg.TakerFee < sellCfg.TakerFee ||
			(buyCfg.TakerFee == sellCfg.TakerFee && opp.BuyVenue < opp.SellVenue) {
			return domain.OrderSideBuy, opp.BuyVenue, true
		}
		return domain.OrderSideSell, opp.SellVenue, true
	case buyAuth:
		return domain.OrderSideBuy, opp.BuyVenue, true
	case sellAuth:
		return domain.OrderSideSell, opp.SellVenue, true
	default:
		return "", "", false
	}
}

// sizeLeg fetches the relevant balance and returns the base-currency amount.
// Buy legs spend quote currency capped by the notional ceiling; sell legs
// spend base currency capped by the fixed small-sell ceiling.
func (e *Executor) sizeLeg(ctx context.Context, client venue.Client, opp domain.Opportunity, side domain.OrderSide) (float64, error) {
	if side == domain.OrderSideBuy {
		bal, err := client.FetchBalance(ctx, opp.Instrument.Quote)
		if err != nil {
			return 0, err
		}
		return math.Min(e.notionalCap/opp.BuyPrice, bal.Free/opp.BuyPrice), nil
	}

	bal, err := client.FetchBalance(ctx, opp.Instrument.Base)
	if err != nil {
		return 0, err
	}
	return math.Min(e.maxSellBase, bal.Free), nil
}

// counterLeg describes the manual action left to the operator.
func (e *Executor) counterLeg(opp domain.Opportunity, executed domain.OrderSide) string {
	if executed == domain.OrderSideBuy {
		return fmt.Sprintf("sell on %s at %s", opp.SellVenue, formatAmount(opp.SellPrice))
	}
	return fmt.Sprintf("buy on %s at %s", opp.BuyVenue, formatAmount(opp.BuyPrice))
}

func (e *Executor) mutexFor(venueName string) *sync.Mutex {
	e.muMu.Lock()
	defer e.muMu.Unlock()
	mu, ok := e.venueMus[venueName]
	if !ok {
		mu = &sync.Mutex{}
		e.venueMus[venueName] = mu
	}
	return mu
}

func (e *Executor) recordOpportunity(ctx context.Context, opp domain.Opportunity) {
	if e.oppStore == nil {
		return
	}
	if err := e.oppStore.Insert(ctx, opp); err != nil {
		e.logger.Warn("opportunity record failed",
			slog.String("opp_id", opp.ID), slog.String("error", err.Error()))
	}
}

func (e *Executor) recordOrder(ctx context.Context, opp domain.Opportunity, intent domain.TradeIntent, result domain.OrderResult, orderErr error) {
	if e.orderStore == nil {
		return
	}
	rec := domain.OrderRecord{
		ID:            uuid.NewString(),
		OpportunityID: opp.ID,
		Venue:         intent.Venue,
		Side:          intent.Side,
		Instrument:    intent.Instrument,
		Amount:        intent.Amount,
		VenueOrderID:  result.OrderID,
		Status:        result.Status,
		CreatedAt:     time.Now().UTC(),
	}
	if orderErr != nil {
		rec.Error = orderErr.Error()
	}
	if err := e.orderStore.Insert(ctx, rec); err != nil {
		e.logger.Warn("order record failed",
			slog.String("opp_id", opp.ID), slog.String("error", err.Error()))
	}
}

func (e *Executor) markExecuted(ctx context.Context, oppID string) {
	if e.oppStore == nil {
		return
	}
	if err := e.oppStore.MarkExecuted(ctx, oppID); err != nil {
		e.logger.Warn("mark executed failed",
			slog.String("opp_id", oppID), slog.String("error", err.Error()))
	}
}

func (e *Executor) notify(ctx context.Context, event, title, message string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, event, title, message); err != nil {
		e.logger.Warn("notify failed",
			slog.String("event", event), slog.String("error", err.Error()))
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%g", v)
}
