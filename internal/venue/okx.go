package venue

import (
	"bytes"
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

// OKX is the REST client for the OKX v5 API.
type OKX struct {
	baseURL    string
	apiKey     string
	secret     string
	passphrase string
	httpClient *http.Client
}

// OKXConfig holds constructor parameters for the OKX client.
type OKXConfig struct {
	BaseURL    string // e.g. "https://www.okx.com"
	ApiKey     string
	Secret     string
	Passphrase string
	HTTPClient *http.Client
}

// NewOKX creates an OKX client. Leave credentials empty for public-only
// access.
func NewOKX(cfg OKXConfig) *OKX {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &OKX{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.ApiKey,
		secret:     cfg.Secret,
		passphrase: cfg.Passphrase,
		httpClient: hc,
	}
}

// Name returns the venue identifier.
func (o *OKX) Name() string { return "okx" }

// Authenticated reports whether trading credentials are configured.
func (o *OKX) Authenticated() bool {
	return o.apiKey != "" && o.secret != "" && o.passphrase != ""
}

// okxInstID maps BTC/USDT to the venue's BTC-USDT form.
func okxInstID(inst domain.Instrument) string {
	return inst.Base + "-" + inst.Quote
}

// okxEnvelope is the common response wrapper: code "0" means success.
type okxEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// FetchTicker returns the best bid/ask from the market ticker endpoint.
func (o *OKX) FetchTicker(ctx context.Context, inst domain.Instrument) (domain.PriceQuote, error) {
	path := "/api/v5/market/ticker?instId=" + url.QueryEscape(okxInstID(inst))

	data, err := o.doRequest(ctx, http.MethodGet, path, nil, false)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("okx: fetch ticker %s: %w", inst, err)
	}

	var tickers []struct {
		BidPx string `json:"bidPx"`
		AskPx string `json:"askPx"`
	}
	if err := json.Unmarshal(data, &tickers); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("okx: decode ticker: %w", err)
	}
	if len(tickers) == 0 {
		return domain.PriceQuote{}, fmt.Errorf("okx: no ticker data for %s: %w", inst, domain.ErrNotFound)
	}

	bid, err := strconv.ParseFloat(tickers[0].BidPx, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("okx: parse bid %q: %w", tickers[0].BidPx, err)
	}
	ask, err := strconv.ParseFloat(tickers[0].AskPx, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("okx: parse ask %q: %w", tickers[0].AskPx, err)
	}

	return domain.PriceQuote{
		Venue:      o.Name(),
		Instrument: inst,
		Bid:        bid,
		Ask:        ask,
		At:         time.Now().UTC(),
	}, nil
}

// FetchBalance returns the available balance for one currency.
func (o *OKX) FetchBalance(ctx context.Context, currency string) (domain.Balance, error) {
	if !o.Authenticated() {
		return domain.Balance{}, domain.ErrNotAuthenticated
	}

	path := "/api/v5/account/balance?ccy=" + url.QueryEscape(strings.ToUpper(currency))
	data, err := o.doRequest(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return domain.Balance{}, fmt.Errorf("okx: fetch balance %s: %w", currency, err)
	}

	var accounts []struct {
		Details []struct {
			Ccy      string `json:"ccy"`
			AvailBal string `json:"availBal"`
		} `json:"details"`
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return domain.Balance{}, fmt.Errorf("okx: decode balance: %w", err)
	}

	for _, acct := range accounts {
		for _, d := range acct.Details {
			if !strings.EqualFold(d.Ccy, currency) {
				continue
			}
			free, err := strconv.ParseFloat(d.AvailBal, 64)
			if err != nil {
				return domain.Balance{}, fmt.Errorf("okx: parse avail balance %q: %w", d.AvailBal, err)
			}
			return domain.Balance{Venue: o.Name(), Currency: currency, Free: free}, nil
		}
	}
	return domain.Balance{Venue: o.Name(), Currency: currency, Free: 0}, nil
}

// PlaceMarketOrder submits a spot market order sized in base units.
func (o *OKX) PlaceMarketOrder(ctx context.Context, intent domain.TradeIntent) (domain.OrderResult, error) {
	if !o.Authenticated() {
		return domain.OrderResult{}, domain.ErrNotAuthenticated
	}

	order := map[string]string{
		"instId":  okxInstID(intent.Instrument),
		"tdMode":  "cash",
		"side":    string(intent.Side),
		"ordType": "market",
		"sz":      strconv.FormatFloat(intent.Amount, 'f', -1, 64),
		// Size market buys in base units too, matching sells.
		"tgtCcy": "base_ccy",
	}

	data, err := o.doRequest(ctx, http.MethodPost, "/api/v5/trade/order", order, true)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("okx: place %s order: %w", intent.Side, err)
	}

	var results []struct {
		OrdID string `json:"ordId"`
		SCode string `json:"sCode"`
		SMsg  string `json:"sMsg"`
	}
	if err := json.Unmarshal(data, &results); err != nil {
		return domain.OrderResult{}, fmt.Errorf("okx: decode order response: %w", err)
	}
	if len(results) == 0 {
		return domain.OrderResult{}, fmt.Errorf("okx: empty order response: %w", domain.ErrOrderRejected)
	}
	if results[0].SCode != "0" {
		return domain.OrderResult{}, fmt.Errorf("okx: %w: %s (%s)", domain.ErrOrderRejected, results[0].SMsg, results[0].SCode)
	}

	return domain.OrderResult{
		OrderID:  results[0].OrdID,
		Status:   domain.OrderStatusPending,
		PlacedAt: time.Now().UTC(),
	}, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doRequest builds, optionally signs, sends, and unwraps an OKX API request.
// OKX signs base64(HMAC-SHA256(secret, timestamp+method+path+body)) with an
// ISO-8601 timestamp.
func (o *OKX) doRequest(ctx context.Context, method, path string, reqBody any, signed bool) (json.RawMessage, error) {
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

	req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if signed {
		ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
		message := ts + method + path + string(bodyBytes)
		req.Header.Set("OK-ACCESS-KEY", o.apiKey)
		req.Header.Set("OK-ACCESS-SIGN", crypto.SignBase64([]byte(o.secret), message))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", o.passphrase)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkStatus("okx", resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	var env okxEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Code != "0" {
		return nil, fmt.Errorf("okx: API error %s: %s", env.Code, env.Msg)
	}
	return env.Data, nil
}
