package domain

import "time"

// PriceQuote is the top-of-book state for one instrument on one venue.
// Quotes are ephemeral: a new one is fetched every cycle and never merged
// with quotes from earlier cycles.
type PriceQuote struct {
	Venue      string
	Instrument Instrument
	Bid        float64 // best price a seller receives
	Ask        float64 // best price a buyer pays
	At         time.Time
}

// Tradeable reports whether both sides of the quote carry usable prices.
func (q PriceQuote) Tradeable() bool {
	return q.Bid > 0 && q.Ask > 0
}

// Snapshot is one cycle's view of an instrument across venues, keyed by venue
// name. Venues whose fetch failed this cycle are simply absent.
type Snapshot struct {
	Instrument Instrument
	Quotes     map[string]PriceQuote
	TakenAt    time.Time
}

// Venues returns the names of the venues present in the snapshot, in no
// particular order.
func (s Snapshot) Venues() []string {
	names := make([]string, 0, len(s.Quotes))
	for name := range s.Quotes {
		names = append(names, name)
	}
	return names
}
