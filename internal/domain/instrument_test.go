package domain

import "testing"

func TestParseInstrument(t *testing.T) {
	tests := []struct {
		in        string
		wantBase  string
		wantQuote string
		wantErr   bool
	}{
		{"BTC/USDT", "BTC", "USDT", false},
		{"eth/usdt", "ETH", "USDT", false},
		{" SOL / USDC ", "SOL", "USDC", false},
		{"BTCUSDT", "", "", true},
		{"BTC/", "", "", true},
		{"/USDT", "", "", true},
		{"A/B/C", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		inst, err := ParseInstrument(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseInstrument(%q) expected error, got %v", tt.in, inst)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseInstrument(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if inst.Base != tt.wantBase || inst.Quote != tt.wantQuote {
			t.Errorf("ParseInstrument(%q) = %s/%s, want %s/%s",
				tt.in, inst.Base, inst.Quote, tt.wantBase, tt.wantQuote)
		}
	}
}

func TestInstrumentSymbol(t *testing.T) {
	inst := Instrument{Base: "BTC", Quote: "USDT"}
	if got := inst.Symbol(); got != "BTC/USDT" {
		t.Errorf("Symbol() = %q, want %q", got, "BTC/USDT")
	}
}

func TestPriceQuoteTradeable(t *testing.T) {
	tests := []struct {
		bid, ask float64
		want     bool
	}{
		{100, 101, true},
		{0, 101, false},
		{100, 0, false},
		{-1, 101, false},
		{100, -1, false},
	}
	for _, tt := range tests {
		q := PriceQuote{Bid: tt.bid, Ask: tt.ask}
		if got := q.Tradeable(); got != tt.want {
			t.Errorf("Tradeable(bid=%v, ask=%v) = %v, want %v", tt.bid, tt.ask, got, tt.want)
		}
	}
}
