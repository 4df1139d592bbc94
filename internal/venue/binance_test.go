package venue

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rfyang/arbscan/internal/domain"
)

func TestBinanceFetchTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/bookTicker" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("symbol = %q, want BTCUSDT", got)
		}
		w.Write([]byte(`{"symbol":"BTCUSDT","bidPrice":"50000.10","askPrice":"50001.20"}`))
	}))
	defer srv.Close()

	b := NewBinance(BinanceConfig{BaseURL: srv.URL})
	quote, err := b.FetchTicker(context.Background(), domain.Instrument{Base: "BTC", Quote: "USDT"})
	if err != nil {
		t.Fatalf("FetchTicker: %v", err)
	}
	if quote.Bid != 50000.10 || quote.Ask != 50001.20 {
		t.Errorf("quote = %+v, want bid 50000.10 ask 50001.20", quote)
	}
	if quote.Venue != "binance" {
		t.Errorf("venue = %q, want binance", quote.Venue)
	}
}

func TestBinanceFetchBalanceSigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-MBX-APIKEY"); got != "key123" {
			t.Errorf("X-MBX-APIKEY = %q, want key123", got)
		}
		q := r.URL.Query()
		if q.Get("timestamp") == "" {
			t.Error("missing timestamp parameter")
		}
		if q.Get("signature") == "" {
			t.Error("missing signature parameter")
		}
		w.Write([]byte(`{"balances":[{"asset":"BTC","free":"0.5","locked":"0"},{"asset":"USDT","free":"1200.75","locked":"10"}]}`))
	}))
	defer srv.Close()

	b := NewBinance(BinanceConfig{BaseURL: srv.URL, ApiKey: "key123", Secret: "secret"})
	bal, err := b.FetchBalance(context.Background(), "USDT")
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	if bal.Free != 1200.75 {
		t.Errorf("free = %v, want 1200.75", bal.Free)
	}
}

func TestBinanceFetchBalanceUnauthenticated(t *testing.T) {
	b := NewBinance(BinanceConfig{BaseURL: "http://unused"})
	_, err := b.FetchBalance(context.Background(), "USDT")
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestBinancePlaceMarketOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		q := r.URL.Query()
		if got := q.Get("side"); got != "BUY" {
			t.Errorf("side = %q, want BUY", got)
		}
		if got := q.Get("type"); got != "MARKET" {
			t.Errorf("type = %q, want MARKET", got)
		}
		if got := q.Get("quantity"); got != "0.0008" {
			t.Errorf("quantity = %q, want 0.0008", got)
		}
		w.Write([]byte(`{"orderId":42,"status":"FILLED","executedQty":"0.0008"}`))
	}))
	defer srv.Close()

	b := NewBinance(BinanceConfig{BaseURL: srv.URL, ApiKey: "k", Secret: "s"})
	res, err := b.PlaceMarketOrder(context.Background(), domain.TradeIntent{
		Venue:      "binance",
		Side:       domain.OrderSideBuy,
		Instrument: domain.Instrument{Base: "BTC", Quote: "USDT"},
		Amount:     0.0008,
	})
	if err != nil {
		t.Fatalf("PlaceMarketOrder: %v", err)
	}
	if res.Status != domain.OrderStatusFilled {
		t.Errorf("status = %q, want filled", res.Status)
	}
	if res.OrderID != "42" {
		t.Errorf("order id = %q, want 42", res.OrderID)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"ok", http.StatusOK, nil},
		{"created", http.StatusCreated, nil},
		{"unauthorized", http.StatusUnauthorized, domain.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, domain.ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, domain.ErrRateLimited},
		{"not found", http.StatusNotFound, domain.ErrNotFound},
		{"server error", http.StatusInternalServerError, domain.ErrVenueUnavailable},
		{"bad gateway", http.StatusBadGateway, domain.ErrVenueUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus("binance", tt.code, []byte(`{"msg":"x"}`))
			if tt.want == nil {
				if err != nil {
					t.Errorf("checkStatus(%d) = %v, want nil", tt.code, err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("checkStatus(%d) = %v, want %v", tt.code, err, tt.want)
			}
		})
	}
}

func TestBinanceVenueUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	b := NewBinance(BinanceConfig{BaseURL: srv.URL})
	_, err := b.FetchTicker(context.Background(), domain.Instrument{Base: "ETH", Quote: "USDT"})
	if !errors.Is(err, domain.ErrVenueUnavailable) {
		t.Errorf("err = %v, want ErrVenueUnavailable", err)
	}
}
