package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rfyang/arbscan/internal/domain"
)

// Archiver moves aged history rows out of Postgres: rows older than the
// retention window are serialized to JSONL, uploaded under
// archive/{kind}/YYYY-MM/<run timestamp>.jsonl, and only then deleted from
// the primary store. A failed upload leaves the rows in place for the next
// run. Every pass writes its own object, so a run never overwrites rows a
// previous run already archived and deleted.
type Archiver struct {
	writer    domain.BlobWriter
	opps      domain.OpportunityStore
	orders    domain.OrderStore
	retention time.Duration
	logger    *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(writer domain.BlobWriter, opps domain.OpportunityStore, orders domain.OrderStore, retention time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		opps:      opps,
		orders:    orders,
		retention: retention,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// Run archives both history tables once. Orders go first: their rows
// reference opportunities, so they must be out of the way before the
// opportunity delete cascades.
func (a *Archiver) Run(ctx context.Context) error {
	return a.run(ctx, time.Now().UTC())
}

func (a *Archiver) run(ctx context.Context, runAt time.Time) error {
	cutoff := runAt.Add(-a.retention)

	orderCount, err := a.archiveOrders(ctx, cutoff, runAt)
	if err != nil {
		return err
	}
	oppCount, err := a.archiveOpportunities(ctx, cutoff, runAt)
	if err != nil {
		return err
	}

	a.logger.Info("archive run complete",
		slog.Time("cutoff", cutoff),
		slog.Int64("orders", orderCount),
		slog.Int64("opportunities", oppCount))
	return nil
}

// RunPeriodically runs an archive pass at the given interval until the
// context is cancelled. Failures are logged and retried next interval.
func (a *Archiver) RunPeriodically(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (a *Archiver) archiveOpportunities(ctx context.Context, cutoff, runAt time.Time) (int64, error) {
	opps, err := a.opps.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}
	key := archiveKey("opportunities", runAt)
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	deleted, err := a.opps.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities delete: %w", err)
	}
	return deleted, nil
}

func (a *Archiver) archiveOrders(ctx context.Context, cutoff, runAt time.Time) (int64, error) {
	orders, err := a.orders.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders query: %w", err)
	}
	if len(orders) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(orders)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders marshal: %w", err)
	}
	key := archiveKey("orders", runAt)
	if err := a.writer.Write(ctx, key, buf, "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive orders upload: %w", err)
	}

	deleted, err := a.orders.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive orders delete: %w", err)
	}
	return deleted, nil
}

// archiveKey builds the object key:
// archive/{kind}/YYYY-MM/YYYYMMDDTHHMMSSZ.jsonl. The monthly prefix keeps
// lifecycle rules simple; the run timestamp makes each pass a distinct
// object, since Write replaces whatever lives under an existing key.
func archiveKey(kind string, runAt time.Time) string {
	return fmt.Sprintf("archive/%s/%s/%s.jsonl",
		kind, runAt.Format("2006-01"), runAt.Format("20060102T150405Z"))
}

// marshalJSONL serializes a slice as one JSON document per line.
func marshalJSONL[T any](items []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
