package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/rfyang/arbscan/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStreamURLCombinesInstruments(t *testing.T) {
	f := NewBinanceWSFeed("wss://stream.binance.com:9443", []domain.Instrument{
		{Base: "BTC", Quote: "USDT"},
		{Base: "ETH", Quote: "USDT"},
	}, nil, testLogger())

	want := "wss://stream.binance.com:9443/stream?streams=btcusdt@bookTicker/ethusdt@bookTicker"
	if f.streamURL != want {
		t.Errorf("streamURL = %q, want %q", f.streamURL, want)
	}
}

func TestHandleMessageDispatchesQuote(t *testing.T) {
	var got []domain.PriceQuote
	f := NewBinanceWSFeed("wss://x", []domain.Instrument{{Base: "BTC", Quote: "USDT"}},
		func(ctx context.Context, q domain.PriceQuote) { got = append(got, q) },
		testLogger())

	msg := []byte(`{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"50000.10","a":"50001.20"}}`)
	f.handleMessage(context.Background(), msg)

	if len(got) != 1 {
		t.Fatalf("got %d quotes, want 1", len(got))
	}
	if got[0].Bid != 50000.10 || got[0].Ask != 50001.20 {
		t.Errorf("quote = %+v, want bid 50000.10 ask 50001.20", got[0])
	}
	if got[0].Venue != "binance" {
		t.Errorf("venue = %q, want binance", got[0].Venue)
	}
	if got[0].Instrument.Symbol() != "BTC/USDT" {
		t.Errorf("instrument = %q, want BTC/USDT", got[0].Instrument.Symbol())
	}
}

func TestHandleMessageIgnoresUnknownStream(t *testing.T) {
	var got []domain.PriceQuote
	f := NewBinanceWSFeed("wss://x", []domain.Instrument{{Base: "BTC", Quote: "USDT"}},
		func(ctx context.Context, q domain.PriceQuote) { got = append(got, q) },
		testLogger())

	f.handleMessage(context.Background(), []byte(`{"stream":"dogeusdt@bookTicker","data":{"s":"DOGEUSDT","b":"0.1","a":"0.2"}}`))
	f.handleMessage(context.Background(), []byte(`not json`))
	f.handleMessage(context.Background(), []byte(`{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"oops","a":"1"}}`))

	if len(got) != 0 {
		t.Errorf("got %d quotes, want 0", len(got))
	}
}
