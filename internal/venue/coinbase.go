package venue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rfyang/arbscan/internal/crypto"
	"github.com/rfyang/arbscan/internal/domain"
)

// Coinbase is the REST client for the Coinbase Exchange API.
type Coinbase struct {
	baseURL    string
	apiKey     string
	secret     string
	passphrase string
	httpClient *http.Client
}

// CoinbaseConfig holds constructor parameters for the Coinbase client.
type CoinbaseConfig struct {
	BaseURL    string // e.g. "https://api.exchange.coinbase.com"
	ApiKey     string
	Secret     string // base64-encoded, as issued
	Passphrase string
	HTTPClient *http.Client
}

// NewCoinbase creates a Coinbase Exchange client. Leave credentials empty for
// public-only access.
func NewCoinbase(cfg CoinbaseConfig) *Coinbase {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Coinbase{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.ApiKey,
		secret:     cfg.Secret,
		passphrase: cfg.Passphrase,
		httpClient: hc,
	}
}

// Name returns the venue identifier.
func (c *Coinbase) Name() string { return "coinbase" }

// Authenticated reports whether trading credentials are configured.
func (c *Coinbase) Authenticated() bool {
	return c.apiKey != "" && c.secret != "" && c.passphrase != ""
}

// coinbaseProduct maps BTC/USDT to the venue's BTC-USDT product id.
func coinbaseProduct(inst domain.Instrument) string {
	return inst.Base + "-" + inst.Quote
}

// FetchTicker returns the best bid/ask from the product ticker endpoint.
func (c *Coinbase) FetchTicker(ctx context.Context, inst domain.Instrument) (domain.PriceQuote, error) {
	path := "/products/" + coinbaseProduct(inst) + "/ticker"

	body, err := c.doRequest(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("coinbase: fetch ticker %s: %w", inst, err)
	}

	var ticker struct {
		Bid string `json:"bid"`
		Ask string `json:"ask"`
	}
	if err := json.Unmarshal(body, &ticker); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("coinbase: decode ticker: %w", err)
	}

	bid, err := strconv.ParseFloat(ticker.Bid, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("coinbase: parse bid %q: %w", ticker.Bid, err)
	}
	ask, err := strconv.ParseFloat(ticker.Ask, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("coinbase: parse ask %q: %w", ticker.Ask, err)
	}

	return domain.PriceQuote{
		Venue:      c.Name(),
		Instrument: inst,
		Bid:        bid,
		Ask:        ask,
		At:         time.Now().UTC(),
	}, nil
}

// FetchBalance returns the available balance for one currency.
func (c *Coinbase) FetchBalance(ctx context.Context, currency string) (domain.Balance, error) {
	if !c.Authenticated() {
		return domain.Balance{}, domain.ErrNotAuthenticated
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/accounts", nil, true)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("coinbase: fetch balance %s: %w", currency, err)
	}

	var accounts []struct {
		Currency  string `json:"currency"`
		Available string `json:"available"`
	}
	if err := json.Unmarshal(body, &accounts); err != nil {
		return domain.Balance{}, fmt.Errorf("coinbase: decode accounts: %w", err)
	}

	for _, acct := range accounts {
		if !strings.EqualFold(acct.Currency, currency) {
			continue
		}
		free, err := strconv.ParseFloat(acct.Available, 64)
		if err != nil {
			return domain.Balance{}, fmt.Errorf("coinbase: parse available %q: %w", acct.Available, err)
		}
		return domain.Balance{Venue: c.Name(), Currency: currency, Free: free}, nil
	}
	return domain.Balance{Venue: c.Name(), Currency: currency, Free: 0}, nil
}

// PlaceMarketOrder submits a market order sized in base units.
func (c *Coinbase) PlaceMarketOrder(ctx context.Context, intent domain.TradeIntent) (domain.OrderResult, error) {
	if !c.Authenticated() {
		return domain.OrderResult{}, domain.ErrNotAuthenticated
	}

	order := map[string]string{
		"type":       "market",
		"side":       string(intent.Side),
		"product_id": coinbaseProduct(intent.Instrument),
		"size":       strconv.FormatFloat(intent.Amount, 'f', -1, 64),
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/orders", order, true)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("coinbase: place %s order: %w", intent.Side, err)
	}

	var placed struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &placed); err != nil {
		return domain.OrderResult{}, fmt.Errorf("coinbase: decode order response: %w", err)
	}

	status := domain.OrderStatusPending
	switch placed.Status {
	case "done", "settled":
		status = domain.OrderStatusFilled
	case "rejected":
		status = domain.OrderStatusRejected
	}

	return domain.OrderResult{
		OrderID:  placed.ID,
		Status:   status,
		PlacedAt: time.Now().UTC(),
	}, nil
}

// doRequest builds, optionally signs, and sends a Coinbase Exchange request.
// Coinbase signs base64(HMAC-SHA256(base64decode(secret),
// timestamp+method+path+body)) with a unix-seconds timestamp.
func (c *Coinbase) doRequest(ctx context.Context, method, path string, reqBody any, signed bool) ([]byte, error) {
	var bodyBytes []byte
	var bodyReader io.Reader
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if signed {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		message := ts + method + path + string(bodyBytes)
		req.Header.Set("CB-ACCESS-KEY", c.apiKey)
		req.Header.Set("CB-ACCESS-SIGN", crypto.SignBase64Key(c.secret, message))
		req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
		req.Header.Set("CB-ACCESS-PASSPHRASE", c.passphrase)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkStatus("coinbase", resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}
