package domain

import "context"

// QuoteCache keeps the latest top-of-book quote per (venue, instrument) for
// operator dashboards. The detector never reads it: detection always runs on
// the snapshot collected in the same cycle.
type QuoteCache interface {
	SetQuote(ctx context.Context, q PriceQuote) error
	GetQuote(ctx context.Context, venue string, inst Instrument) (PriceQuote, error)
}

// SignalBus publishes cycle events (quotes, opportunities, order outcomes) to
// external consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter writes an object to blob storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
