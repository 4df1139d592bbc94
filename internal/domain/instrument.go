// Package domain defines the core types shared by every arbscan component:
// instruments, quotes, opportunities, trade intents, and the store and cache
// interfaces implemented by the infrastructure packages.
package domain

import (
	"fmt"
	"strings"
)

// Instrument identifies a base/quote currency pair, e.g. BTC/USDT.
// Instruments are immutable and supplied at startup.
type Instrument struct {
	Base  string
	Quote string
}

// ParseInstrument parses a "BASE/QUOTE" pair string such as "BTC/USDT".
func ParseInstrument(s string) (Instrument, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Instrument{}, fmt.Errorf("domain: instrument %q: want BASE/QUOTE", s)
	}
	base := strings.ToUpper(strings.TrimSpace(parts[0]))
	quote := strings.ToUpper(strings.TrimSpace(parts[1]))
	if base == "" || quote == "" {
		return Instrument{}, fmt.Errorf("domain: instrument %q: empty base or quote", s)
	}
	return Instrument{Base: base, Quote: quote}, nil
}

// Symbol returns the canonical "BASE/QUOTE" representation.
func (i Instrument) Symbol() string {
	return i.Base + "/" + i.Quote
}

// String implements fmt.Stringer.
func (i Instrument) String() string {
	return i.Symbol()
}
