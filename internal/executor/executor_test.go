package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rfyang/arbscan/internal/domain"
	"github.com/rfyang/arbscan/internal/venue"
)

type mockVenue struct {
	name          string
	authenticated bool
	balances      map[string]float64
	balanceErr    error
	orderErr      error

	mu     sync.Mutex
	orders []domain.TradeIntent
}

func (m *mockVenue) Name() string        { return m.name }
func (m *mockVenue) Authenticated() bool { return m.authenticated }

func (m *mockVenue) FetchTicker(ctx context.Context, inst domain.Instrument) (domain.PriceQuote, error) {
	return domain.PriceQuote{}, domain.ErrVenueUnavailable
}

func (m *mockVenue) FetchBalance(ctx context.Context, currency string) (domain.Balance, error) {
	if m.balanceErr != nil {
		return domain.Balance{}, m.balanceErr
	}
	return domain.Balance{Venue: m.name, Currency: currency, Free: m.balances[currency]}, nil
}

func (m *mockVenue) PlaceMarketOrder(ctx context.Context, intent domain.TradeIntent) (domain.OrderResult, error) {
	m.mu.Lock()
	m.orders = append(m.orders, intent)
	m.mu.Unlock()
	if m.orderErr != nil {
		return domain.OrderResult{}, m.orderErr
	}
	return domain.OrderResult{OrderID: "ord-1", Status: domain.OrderStatusFilled, FilledQty: intent.Amount}, nil
}

func (m *mockVenue) placedOrders() []domain.TradeIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TradeIntent(nil), m.orders...)
}

type mockOppStore struct {
	inserted []domain.Opportunity
	executed []string
}

func (m *mockOppStore) Insert(ctx context.Context, opp domain.Opportunity) error {
	m.inserted = append(m.inserted, opp)
	return nil
}

func (m *mockOppStore) MarkExecuted(ctx context.Context, id string) error {
	m.executed = append(m.executed, id)
	return nil
}

func (m *mockOppStore) ListRecent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	return nil, nil
}

func (m *mockOppStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.Opportunity, error) {
	return nil, nil
}

func (m *mockOppStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type mockNotifier struct {
	mu     sync.Mutex
	events []string
}

func (m *mockNotifier) Notify(ctx context.Context, event, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockNotifier) seen(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e == event {
			return true
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var btcUSDT = domain.Instrument{Base: "BTC", Quote: "USDT"}

func testOpportunity(buyVenue, sellVenue string) domain.Opportunity {
	return domain.Opportunity{
		ID:         "opp-1",
		Instrument: btcUSDT,
		BuyVenue:   buyVenue,
		SellVenue:  sellVenue,
		BuyPrice:   50000,
		SellPrice:  50500,
		NetProfit:  0.008,
	}
}

func feeTable(auth map[string]bool) domain.FeeTable {
	fees := domain.FeeTable{
		"binance": {Name: "binance", TakerFee: 0.001, TransferFee: 0.0002},
		"okx":     {Name: "okx", TakerFee: 0.0035, TransferFee: 0.0005},
	}
	for name, cfg := range fees {
		cfg.Authenticated = auth[name]
		fees[name] = cfg
	}
	return fees
}

func TestExecuteSizesBuyLegAgainstBalance(t *testing.T) {
	binance := &mockVenue{name: "binance", authenticated: true, balances: map[string]float64{"USDT": 40}}
	okx := &mockVenue{name: "okx"}
	e := New(Config{
		Registry:    venue.NewRegistry(binance, okx),
		Fees:        feeTable(map[string]bool{"binance": true}),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		Logger:      testLogger(),
	})

	// notionalCap/ask = 100/50000 = 0.002, balance/ask = 40/50000 = 0.0008.
	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	orders := binance.placedOrders()
	if len(orders) != 1 {
		t.Fatalf("got %d orders on binance, want 1", len(orders))
	}
	if orders[0].Side != domain.OrderSideBuy {
		t.Errorf("side = %q, want buy", orders[0].Side)
	}
	if math.Abs(orders[0].Amount-0.0008) > 1e-12 {
		t.Errorf("amount = %v, want 0.0008", orders[0].Amount)
	}
	if got := okx.placedOrders(); len(got) != 0 {
		t.Errorf("counter-leg venue received %d orders, want 0", len(got))
	}
}

func TestExecuteSizesSellLegAgainstBalance(t *testing.T) {
	binance := &mockVenue{name: "binance"}
	okx := &mockVenue{name: "okx", authenticated: true, balances: map[string]float64{"BTC": 0.0004}}
	e := New(Config{
		Registry:    venue.NewRegistry(binance, okx),
		Fees:        feeTable(map[string]bool{"okx": true}),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	orders := okx.placedOrders()
	if len(orders) != 1 {
		t.Fatalf("got %d orders on okx, want 1", len(orders))
	}
	if orders[0].Side != domain.OrderSideSell {
		t.Errorf("side = %q, want sell", orders[0].Side)
	}
	if orders[0].Amount != 0.0004 {
		t.Errorf("amount = %v, want 0.0004 (balance below ceiling)", orders[0].Amount)
	}
}

func TestExecuteZeroBalanceSkips(t *testing.T) {
	binance := &mockVenue{name: "binance", authenticated: true, balances: map[string]float64{"USDT": 0}}
	e := New(Config{
		Registry:    venue.NewRegistry(binance),
		Fees:        feeTable(map[string]bool{"binance": true}),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := binance.placedOrders(); len(got) != 0 {
		t.Errorf("got %d orders, want 0 on zero balance", len(got))
	}
}

func TestExecuteNeitherAuthenticatedNoOrder(t *testing.T) {
	binance := &mockVenue{name: "binance", balances: map[string]float64{"USDT": 1000}}
	okx := &mockVenue{name: "okx", balances: map[string]float64{"BTC": 1}}
	e := New(Config{
		Registry:    venue.NewRegistry(binance, okx),
		Fees:        feeTable(nil),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n := len(binance.placedOrders()) + len(okx.placedOrders()); n != 0 {
		t.Errorf("got %d orders, want 0 when neither venue is authenticated", n)
	}
}

func TestExecuteBothAuthenticatedPrefersLowerFee(t *testing.T) {
	// binance taker 0.001 < okx taker 0.0035, so the buy leg on binance wins.
	binance := &mockVenue{name: "binance", authenticated: true, balances: map[string]float64{"USDT": 1000}}
	okx := &mockVenue{name: "okx", authenticated: true, balances: map[string]float64{"BTC": 1}}
	e := New(Config{
		Registry:    venue.NewRegistry(binance, okx),
		Fees:        feeTable(map[string]bool{"binance": true, "okx": true}),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := len(binance.placedOrders()); got != 1 {
		t.Errorf("binance orders = %d, want 1", got)
	}
	if got := len(okx.placedOrders()); got != 0 {
		t.Errorf("okx orders = %d, want 0", got)
	}
}

func TestExecuteOrderFailureIsAbsorbed(t *testing.T) {
	binance := &mockVenue{
		name:          "binance",
		authenticated: true,
		balances:      map[string]float64{"USDT": 1000},
		orderErr:      domain.ErrOrderRejected,
	}
	e := New(Config{
		Registry:    venue.NewRegistry(binance),
		Fees:        feeTable(map[string]bool{"binance": true}),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute should absorb order failure, got %v", err)
	}
}

func TestExecuteDryRunPlacesNoOrder(t *testing.T) {
	binance := &mockVenue{name: "binance", authenticated: true, balances: map[string]float64{"USDT": 1000}}
	e := New(Config{
		Registry:    venue.NewRegistry(binance),
		Fees:        feeTable(map[string]bool{"binance": true}),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		DryRun:      true,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := binance.placedOrders(); len(got) != 0 {
		t.Errorf("dry run placed %d orders, want 0", len(got))
	}
}

func TestExecuteRecordsOpportunityAndMarksExecuted(t *testing.T) {
	store := &mockOppStore{}
	binance := &mockVenue{name: "binance", authenticated: true, balances: map[string]float64{"USDT": 1000}}
	e := New(Config{
		Registry:    venue.NewRegistry(binance),
		Fees:        feeTable(map[string]bool{"binance": true}),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		OppStore:    store,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d opportunities, want 1", len(store.inserted))
	}
	if len(store.executed) != 1 || store.executed[0] != "opp-1" {
		t.Errorf("marked executed = %v, want [opp-1]", store.executed)
	}
}

func TestExecuteNotifiesOpportunity(t *testing.T) {
	// The opportunity alert fires for every detected opportunity, even when
	// no leg is executable and the trade is left entirely to the operator.
	notifier := &mockNotifier{}
	e := New(Config{
		Registry:    venue.NewRegistry(),
		Fees:        feeTable(nil),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		Notifier:    notifier,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !notifier.seen("opportunity") {
		t.Errorf("events = %v, want opportunity alert", notifier.events)
	}
	if notifier.seen("order_placed") {
		t.Error("order_placed emitted without an executable leg")
	}
}

func TestExecuteNotifiesOrderPlaced(t *testing.T) {
	notifier := &mockNotifier{}
	binance := &mockVenue{name: "binance", authenticated: true, balances: map[string]float64{"USDT": 1000}}
	e := New(Config{
		Registry:    venue.NewRegistry(binance),
		Fees:        feeTable(map[string]bool{"binance": true}),
		NotionalCap: 100,
		MaxSellBase: 0.001,
		Notifier:    notifier,
		Logger:      testLogger(),
	})

	if err := e.Execute(context.Background(), testOpportunity("binance", "okx")); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !notifier.seen("opportunity") || !notifier.seen("order_placed") {
		t.Errorf("events = %v, want opportunity then order_placed", notifier.events)
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	e := New(Config{
		Registry: venue.NewRegistry(),
		Fees:     feeTable(nil),
		Logger:   testLogger(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Execute(ctx, testOpportunity("binance", "okx")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
