// Package venue implements the per-venue capability interface used by the
// collector and executor, with one REST adapter per supported exchange. The
// set of venues is closed: adapters are registered in a Registry built once
// at startup, and all venue-role decisions (authenticated or not) come from
// configuration rather than name checks in the trading logic.
package venue

import (
	"context"
	"sort"

	"github.com/rfyang/arbscan/internal/domain"
)

// Client is the uniform capability interface for one trading venue. A slow or
// failed call is treated by callers as absence of data for that venue this
// cycle; retry and backoff policy belongs to the adapter, not to callers.
type Client interface {
	// Name returns the venue identifier used in fee tables and snapshots.
	Name() string
	// Authenticated reports whether the client holds trading credentials.
	Authenticated() bool
	// FetchTicker returns the current top-of-book bid/ask for the instrument.
	FetchTicker(ctx context.Context, inst domain.Instrument) (domain.PriceQuote, error)
	// FetchBalance returns the available amount of one currency.
	FetchBalance(ctx context.Context, currency string) (domain.Balance, error)
	// PlaceMarketOrder submits a market order for intent.Amount base units.
	PlaceMarketOrder(ctx context.Context, intent domain.TradeIntent) (domain.OrderResult, error)
}

// Registry holds the closed set of venue clients, built once at startup.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates a registry from the given clients.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}
	return r
}

// Get returns the client for the named venue and whether it is registered.
func (r *Registry) Get(name string) (Client, bool) {
	c, ok := r.clients[name]
	return c, ok
}

// All returns every registered client, ordered by venue name.
func (r *Registry) All() []Client {
	out := make([]Client, 0, len(r.clients))
	for _, name := range r.Names() {
		out = append(out, r.clients[name])
	}
	return out
}

// Names returns the registered venue names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
