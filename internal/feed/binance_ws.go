// Package feed streams live top-of-book updates over WebSocket. The polling
// cycle never depends on it: the feed only keeps the quote cache warm between
// ticks for dashboards and bus consumers.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rfyang/arbscan/internal/domain"
)

const (
	handshakeTimeout = 15 * time.Second
	readWait         = 90 * time.Second
	reconnectDelay   = 2 * time.Second
)

// QuoteHandler is called for every book ticker update.
type QuoteHandler func(ctx context.Context, q domain.PriceQuote)

// BinanceWSFeed subscribes to Binance combined bookTicker streams for a set
// of instruments and invokes the handler on each update. It reconnects with
// a fixed delay until the context is cancelled.
type BinanceWSFeed struct {
	streamURL string
	byStream  map[string]domain.Instrument
	onQuote   QuoteHandler
	logger    *slog.Logger
}

// NewBinanceWSFeed creates a feed for the given instruments. baseURL is the
// stream endpoint, e.g. "wss://stream.binance.com:9443".
func NewBinanceWSFeed(baseURL string, instruments []domain.Instrument, onQuote QuoteHandler, logger *slog.Logger) *BinanceWSFeed {
	byStream := make(map[string]domain.Instrument, len(instruments))
	streams := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		name := strings.ToLower(inst.Base+inst.Quote) + "@bookTicker"
		byStream[name] = inst
		streams = append(streams, name)
	}

	return &BinanceWSFeed{
		streamURL: strings.TrimSuffix(baseURL, "/") + "/stream?streams=" + strings.Join(streams, "/"),
		byStream:  byStream,
		onQuote:   onQuote,
		logger:    logger.With(slog.String("component", "binance_ws_feed")),
	}
}

// Run keeps one connection alive until the context is cancelled, redialing
// after any read failure.
func (f *BinanceWSFeed) Run(ctx context.Context) error {
	if len(f.byStream) == 0 {
		f.logger.Info("no instruments to stream, exiting")
		return nil
	}

	for {
		if err := f.runConnection(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.Warn("binance ws disconnected, reconnecting",
				slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *BinanceWSFeed) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, f.streamURL, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", f.streamURL, err)
	}
	defer conn.Close()

	// The server pings every few minutes; gorilla answers with pongs on its
	// own, so extending the read deadline in the ping handler is enough to
	// keep the connection marked healthy.
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	f.logger.Info("binance ws connected", slog.Int("streams", len(f.byStream)))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readWait))
		f.handleMessage(ctx, message)
	}
}

// combinedStreamEvent is the envelope of the /stream multiplexed endpoint.
type combinedStreamEvent struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		BidPx  string `json:"b"`
		AskPx  string `json:"a"`
	} `json:"data"`
}

func (f *BinanceWSFeed) handleMessage(ctx context.Context, message []byte) {
	var ev combinedStreamEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		f.logger.Warn("unparseable stream message", slog.String("error", err.Error()))
		return
	}

	inst, ok := f.byStream[ev.Stream]
	if !ok {
		return
	}

	bid, err := strconv.ParseFloat(ev.Data.BidPx, 64)
	if err != nil {
		f.logger.Warn("bad bid in stream message", slog.String("value", ev.Data.BidPx))
		return
	}
	ask, err := strconv.ParseFloat(ev.Data.AskPx, 64)
	if err != nil {
		f.logger.Warn("bad ask in stream message", slog.String("value", ev.Data.AskPx))
		return
	}

	if f.onQuote != nil {
		f.onQuote(ctx, domain.PriceQuote{
			Venue:      "binance",
			Instrument: inst,
			Bid:        bid,
			Ask:        ask,
			At:         time.Now().UTC(),
		})
	}
}
