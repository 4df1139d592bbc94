package domain

import "time"

// Opportunity is a candidate directed trade: buy on BuyVenue at BuyPrice,
// sell on SellVenue at SellPrice. It is derived from a single snapshot and
// discarded after the cycle that produced it; only history rows persist.
type Opportunity struct {
	ID          string
	Instrument  Instrument
	BuyVenue    string
	SellVenue   string
	BuyPrice    float64 // ask on the buy venue
	SellPrice   float64 // bid on the sell venue
	GrossProfit float64 // (sell - buy) / buy
	NetProfit   float64 // gross minus both taker fees, buy-side transfer fee, slippage buffer
	DetectedAt  time.Time
	Executed    bool
}

// ProfitPct returns the net profit as a percentage for operator output.
func (o Opportunity) ProfitPct() float64 {
	return o.NetProfit * 100
}
