package collector

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rfyang/arbscan/internal/domain"
	"github.com/rfyang/arbscan/internal/venue"
)

type mockVenue struct {
	name  string
	quote domain.PriceQuote
	err   error
}

func (m *mockVenue) Name() string        { return m.name }
func (m *mockVenue) Authenticated() bool { return false }

func (m *mockVenue) FetchTicker(ctx context.Context, inst domain.Instrument) (domain.PriceQuote, error) {
	if m.err != nil {
		return domain.PriceQuote{}, m.err
	}
	q := m.quote
	q.Venue = m.name
	q.Instrument = inst
	return q, nil
}

func (m *mockVenue) FetchBalance(ctx context.Context, currency string) (domain.Balance, error) {
	return domain.Balance{}, domain.ErrNotAuthenticated
}

func (m *mockVenue) PlaceMarketOrder(ctx context.Context, intent domain.TradeIntent) (domain.OrderResult, error) {
	return domain.OrderResult{}, domain.ErrNotAuthenticated
}

type mockCache struct {
	mu        sync.Mutex
	quotes    []domain.PriceQuote
	failVenue string // SetQuote fails for this venue only
}

func (m *mockCache) SetQuote(ctx context.Context, q domain.PriceQuote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failVenue != "" && q.Venue == m.failVenue {
		return errors.New("write failed")
	}
	m.quotes = append(m.quotes, q)
	return nil
}

func (m *mockCache) GetQuote(ctx context.Context, venueName string, inst domain.Instrument) (domain.PriceQuote, error) {
	return domain.PriceQuote{}, domain.ErrNotFound
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var btcUSDT = domain.Instrument{Base: "BTC", Quote: "USDT"}

func TestCollectMergesAllVenues(t *testing.T) {
	reg := venue.NewRegistry(
		&mockVenue{name: "binance", quote: domain.PriceQuote{Bid: 50000, Ask: 50001, At: time.Now()}},
		&mockVenue{name: "okx", quote: domain.PriceQuote{Bid: 50100, Ask: 50101, At: time.Now()}},
		&mockVenue{name: "coinbase", quote: domain.PriceQuote{Bid: 49990, Ask: 49995, At: time.Now()}},
	)
	c := New(Config{Registry: reg, Logger: testLogger()})

	snap, err := c.Collect(context.Background(), btcUSDT)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(snap.Quotes) != 3 {
		t.Fatalf("got %d quotes, want 3", len(snap.Quotes))
	}
	if snap.Quotes["okx"].Bid != 50100 {
		t.Errorf("okx bid = %v, want 50100", snap.Quotes["okx"].Bid)
	}
	if snap.Instrument != btcUSDT {
		t.Errorf("instrument = %v, want %v", snap.Instrument, btcUSDT)
	}
}

func TestCollectToleratesVenueFailure(t *testing.T) {
	reg := venue.NewRegistry(
		&mockVenue{name: "binance", quote: domain.PriceQuote{Bid: 50000, Ask: 50001}},
		&mockVenue{name: "okx", err: errors.New("connection refused")},
		&mockVenue{name: "coinbase", quote: domain.PriceQuote{Bid: 49990, Ask: 49995}},
	)
	c := New(Config{Registry: reg, Logger: testLogger()})

	snap, err := c.Collect(context.Background(), btcUSDT)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(snap.Quotes) != 2 {
		t.Fatalf("got %d quotes, want 2", len(snap.Quotes))
	}
	if _, ok := snap.Quotes["okx"]; ok {
		t.Error("failed venue should be absent from snapshot")
	}
}

func TestCollectSkipsUntradeableBook(t *testing.T) {
	reg := venue.NewRegistry(
		&mockVenue{name: "binance", quote: domain.PriceQuote{Bid: 0, Ask: 50001}},
		&mockVenue{name: "okx", quote: domain.PriceQuote{Bid: 50100, Ask: 50101}},
	)
	c := New(Config{Registry: reg, Logger: testLogger()})

	snap, err := c.Collect(context.Background(), btcUSDT)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if _, ok := snap.Quotes["binance"]; ok {
		t.Error("zero-bid venue should be absent from snapshot")
	}
	if len(snap.Quotes) != 1 {
		t.Errorf("got %d quotes, want 1", len(snap.Quotes))
	}
}

func TestCollectMirrorsToCache(t *testing.T) {
	cache := &mockCache{}
	reg := venue.NewRegistry(
		&mockVenue{name: "binance", quote: domain.PriceQuote{Bid: 50000, Ask: 50001}},
		&mockVenue{name: "okx", quote: domain.PriceQuote{Bid: 50100, Ask: 50101}},
	)
	c := New(Config{Registry: reg, Cache: cache, Logger: testLogger()})

	if _, err := c.Collect(context.Background(), btcUSDT); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(cache.quotes) != 2 {
		t.Errorf("cached %d quotes, want 2", len(cache.quotes))
	}
}

func TestCollectMirrorSurvivesCacheWriteFailure(t *testing.T) {
	cache := &mockCache{failVenue: "binance"}
	reg := venue.NewRegistry(
		&mockVenue{name: "binance", quote: domain.PriceQuote{Bid: 50000, Ask: 50001}},
		&mockVenue{name: "okx", quote: domain.PriceQuote{Bid: 50100, Ask: 50101}},
		&mockVenue{name: "coinbase", quote: domain.PriceQuote{Bid: 49990, Ask: 49995}},
	)
	c := New(Config{Registry: reg, Cache: cache, Logger: testLogger()})

	snap, err := c.Collect(context.Background(), btcUSDT)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(snap.Quotes) != 3 {
		t.Fatalf("got %d quotes, want 3", len(snap.Quotes))
	}
	// One venue's failed cache write must not suppress the others.
	if len(cache.quotes) != 2 {
		t.Fatalf("cached %d quotes, want 2", len(cache.quotes))
	}
	for _, q := range cache.quotes {
		if q.Venue == "binance" {
			t.Error("failing venue unexpectedly cached")
		}
	}
}

func TestCollectCancelledContext(t *testing.T) {
	reg := venue.NewRegistry(
		&mockVenue{name: "binance", quote: domain.PriceQuote{Bid: 50000, Ask: 50001}},
	)
	c := New(Config{Registry: reg, Logger: testLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Collect(ctx, btcUSDT); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
