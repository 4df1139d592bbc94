package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rfyang/arbscan/internal/domain"
)

// quoteTTL bounds how long a stale book survives in the cache. Quotes are
// refreshed every cycle, so anything older than a minute is a dead venue.
const quoteTTL = time.Minute

// QuoteCache implements domain.QuoteCache using Redis hashes. Each quote is a
// hash at "quote:{venue}:{base}-{quote}" with fields "bid", "ask" and "ts"
// (Unix nanosecond timestamp).
type QuoteCache struct {
	rdb *redis.Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(venue string, inst domain.Instrument) string {
	return "quote:" + venue + ":" + inst.Base + "-" + inst.Quote
}

// SetQuote stores the latest top-of-book for one venue and instrument.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.PriceQuote) error {
	key := quoteKey(q.Venue, q.Instrument)
	fields := map[string]interface{}{
		"bid": strconv.FormatFloat(q.Bid, 'f', -1, 64),
		"ask": strconv.FormatFloat(q.Ask, 'f', -1, 64),
		"ts":  strconv.FormatInt(q.At.UnixNano(), 10),
	}

	pipe := qc.rdb.Pipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", key, err)
	}
	return nil
}

// GetQuote retrieves the latest top-of-book for one venue and instrument.
// It returns domain.ErrNotFound when the key does not exist or has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, venue string, inst domain.Instrument) (domain.PriceQuote, error) {
	key := quoteKey(venue, inst)
	vals, err := qc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	if len(vals) == 0 {
		return domain.PriceQuote{}, domain.ErrNotFound
	}

	bid, err := strconv.ParseFloat(vals["bid"], 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse bid %s: %w", key, err)
	}
	ask, err := strconv.ParseFloat(vals["ask"], 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse ask %s: %w", key, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("redis: parse ts %s: %w", key, err)
	}

	return domain.PriceQuote{
		Venue:      venue,
		Instrument: inst,
		Bid:        bid,
		Ask:        ask,
		At:         time.Unix(0, tsNano),
	}, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
