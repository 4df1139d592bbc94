package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rfyang/arbscan/internal/crypto"
	"github.com/rfyang/arbscan/internal/domain"
)

// Binance is the REST client for the Binance spot API.
type Binance struct {
	baseURL    string
	apiKey     string
	secret     string
	httpClient *http.Client
}

// BinanceConfig holds constructor parameters for the Binance client.
type BinanceConfig struct {
	BaseURL string // e.g. "https://api.binance.com"
	ApiKey  string
	Secret  string
	// HTTPClient overrides the default client; used in tests.
	HTTPClient *http.Client
}

// NewBinance creates a Binance client. Leave ApiKey/Secret empty for
// public-only (price) access.
func NewBinance(cfg BinanceConfig) *Binance {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Binance{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.ApiKey,
		secret:     cfg.Secret,
		httpClient: hc,
	}
}

// Name returns the venue identifier.
func (b *Binance) Name() string { return "binance" }

// Authenticated reports whether trading credentials are configured.
func (b *Binance) Authenticated() bool { return b.apiKey != "" && b.secret != "" }

// binanceSymbol maps BTC/USDT to the venue's BTCUSDT form.
func binanceSymbol(inst domain.Instrument) string {
	return inst.Base + inst.Quote
}

// FetchTicker returns the best bid/ask from the bookTicker endpoint.
func (b *Binance) FetchTicker(ctx context.Context, inst domain.Instrument) (domain.PriceQuote, error) {
	path := "/api/v3/ticker/bookTicker?symbol=" + url.QueryEscape(binanceSymbol(inst))

	body, err := b.doPublic(ctx, http.MethodGet, path)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: fetch ticker %s: %w", inst, err)
	}

	var resp struct {
		BidPrice string `json:"bidPrice"`
		AskPrice string `json:"askPrice"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: decode ticker: %w", err)
	}

	bid, err := strconv.ParseFloat(resp.BidPrice, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: parse bid %q: %w", resp.BidPrice, err)
	}
	ask, err := strconv.ParseFloat(resp.AskPrice, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: parse ask %q: %w", resp.AskPrice, err)
	}

	return domain.PriceQuote{
		Venue:      b.Name(),
		Instrument: inst,
		Bid:        bid,
		Ask:        ask,
		At:         time.Now().UTC(),
	}, nil
}

// FetchBalance returns the free balance for one asset from the account
// endpoint.
func (b *Binance) FetchBalance(ctx context.Context, currency string) (domain.Balance, error) {
	if !b.Authenticated() {
		return domain.Balance{}, domain.ErrNotAuthenticated
	}

	body, err := b.doSigned(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return domain.Balance{}, fmt.Errorf("binance: fetch balance %s: %w", currency, err)
	}

	var resp struct {
		Balances []struct {
			Asset string `json:"asset"`
			Free  string `json:"free"`
		} `json:"balances"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Balance{}, fmt.Errorf("binance: decode account: %w", err)
	}

	for _, bal := range resp.Balances {
		if !strings.EqualFold(bal.Asset, currency) {
			continue
		}
		free, err := strconv.ParseFloat(bal.Free, 64)
		if err != nil {
			return domain.Balance{}, fmt.Errorf("binance: parse free balance %q: %w", bal.Free, err)
		}
		return domain.Balance{Venue: b.Name(), Currency: currency, Free: free}, nil
	}

	// An asset missing from the account listing simply has no balance.
	return domain.Balance{Venue: b.Name(), Currency: currency, Free: 0}, nil
}

// PlaceMarketOrder submits a market order for intent.Amount base units.
func (b *Binance) PlaceMarketOrder(ctx context.Context, intent domain.TradeIntent) (domain.OrderResult, error) {
	if !b.Authenticated() {
		return domain.OrderResult{}, domain.ErrNotAuthenticated
	}

	params := url.Values{}
	params.Set("symbol", binanceSymbol(intent.Instrument))
	params.Set("side", strings.ToUpper(string(intent.Side)))
	params.Set("type", "MARKET")
	params.Set("quantity", strconv.FormatFloat(intent.Amount, 'f', -1, 64))

	body, err := b.doSigned(ctx, http.MethodPost, "/api/v3/order", params)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: place %s order: %w", intent.Side, err)
	}

	var resp struct {
		OrderID     int64  `json:"orderId"`
		Status      string `json:"status"`
		ExecutedQty string `json:"executedQty"`
		QuoteQty    string `json:"cummulativeQuoteQty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: decode order response: %w", err)
	}

	filled, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	quoteQty, _ := strconv.ParseFloat(resp.QuoteQty, 64)
	avgPrice := 0.0
	if filled > 0 {
		avgPrice = quoteQty / filled
	}

	return domain.OrderResult{
		OrderID:     strconv.FormatInt(resp.OrderID, 10),
		Status:      binanceOrderStatus(resp.Status),
		FilledQty:   filled,
		FilledPrice: avgPrice,
		PlacedAt:    time.Now().UTC(),
	}, nil
}

// binanceOrderStatus maps venue order states onto the domain lifecycle.
func binanceOrderStatus(s string) domain.OrderStatus {
	switch s {
	case "FILLED", "PARTIALLY_FILLED":
		return domain.OrderStatusFilled
	case "REJECTED", "EXPIRED", "CANCELED":
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusPending
	}
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doPublic sends an unauthenticated request.
func (b *Binance) doPublic(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return b.do(req)
}

// doSigned sends an HMAC-signed request. Binance signatures cover the query
// string including a millisecond timestamp, hex-encoded, with the API key in
// the X-MBX-APIKEY header.
func (b *Binance) doSigned(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	query := params.Encode()
	query += "&signature=" + crypto.SignHex([]byte(b.secret), query)

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-MBX-APIKEY", b.apiKey)
	return b.do(req)
}

func (b *Binance) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus("binance", resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkStatus maps non-2xx HTTP status codes onto domain errors, keeping the
// venue's error body for the operator.
func checkStatus(venue string, statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: HTTP %d: %s", venue, domain.ErrUnauthorized, statusCode, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w: HTTP %d: %s", venue, domain.ErrRateLimited, statusCode, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: HTTP %d: %s", venue, domain.ErrNotFound, statusCode, msg)
	default:
		return fmt.Errorf("%s: %w: HTTP %d: %s", venue, domain.ErrVenueUnavailable, statusCode, msg)
	}
}
