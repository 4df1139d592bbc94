// Package detector scans per-cycle snapshots for profitable cross-venue
// spreads.
package detector

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rfyang/arbscan/internal/domain"
)

// Detector evaluates every directed venue pair in a snapshot: buy at the ask
// on one venue, sell at the bid on another. Pairs clear four costs before they
// count as opportunities: the taker fee on each leg, the withdrawal fee on the
// buy venue, and a fixed slippage buffer.
type Detector struct {
	fees      domain.FeeTable
	minProfit float64
	slippage  float64
	logger    *slog.Logger
}

// Config holds constructor parameters for Detector.
type Config struct {
	Fees           domain.FeeTable
	Venues         []string // the venues detection will run over
	MinProfit      float64  // net-profit threshold, fraction of notional
	SlippageBuffer float64  // fixed deduction, fraction of notional
	Logger         *slog.Logger
}

// New creates a Detector. Every venue in cfg.Venues must carry fee rates:
// a venue with no fee entry would silently default to zero-cost trading and
// misprice every spread, so the gap is rejected at startup instead.
func New(cfg Config) (*Detector, error) {
	for _, name := range cfg.Venues {
		if _, ok := cfg.Fees.Lookup(name); !ok {
			return nil, fmt.Errorf("detector: venue %q has no fee configuration", name)
		}
	}
	return &Detector{
		fees:      cfg.Fees,
		minProfit: cfg.MinProfit,
		slippage:  cfg.SlippageBuffer,
		logger:    cfg.Logger.With(slog.String("component", "detector")),
	}, nil
}

// Detect returns the opportunities in the snapshot whose net profit clears
// the threshold, sorted by net profit descending. Pairs with a missing or
// untradeable side, an unknown venue, or a sub-threshold spread are skipped
// without log noise: most cycles find nothing and that is the normal case.
func (d *Detector) Detect(snap domain.Snapshot) []domain.Opportunity {
	var opps []domain.Opportunity

	for buyVenue, buyQuote := range snap.Quotes {
		for sellVenue, sellQuote := range snap.Quotes {
			if buyVenue == sellVenue {
				continue
			}
			if buyQuote.Ask <= 0 || sellQuote.Bid <= 0 {
				continue
			}

			buyFees, ok := d.fees.Lookup(buyVenue)
			if !ok {
				continue
			}
			sellFees, ok := d.fees.Lookup(sellVenue)
			if !ok {
				continue
			}

			gross := (sellQuote.Bid - buyQuote.Ask) / buyQuote.Ask
			net := gross - buyFees.TakerFee - sellFees.TakerFee - buyFees.TransferFee - d.slippage
			if net <= d.minProfit {
				continue
			}

			opp := domain.Opportunity{
				ID:          uuid.NewString(),
				Instrument:  snap.Instrument,
				BuyVenue:    buyVenue,
				SellVenue:   sellVenue,
				BuyPrice:    buyQuote.Ask,
				SellPrice:   sellQuote.Bid,
				GrossProfit: gross,
				NetProfit:   net,
				DetectedAt:  time.Now().UTC(),
			}
			opps = append(opps, opp)

			d.logger.Info("opportunity detected",
				slog.String("opp_id", opp.ID),
				slog.String("instrument", opp.Instrument.Symbol()),
				slog.String("buy_venue", buyVenue),
				slog.Float64("buy_ask", buyQuote.Ask),
				slog.String("sell_venue", sellVenue),
				slog.Float64("sell_bid", sellQuote.Bid),
				slog.Float64("net_profit_pct", opp.ProfitPct()))
		}
	}

	sort.Slice(opps, func(i, j int) bool {
		return opps[i].NetProfit > opps[j].NetProfit
	})
	return opps
}
