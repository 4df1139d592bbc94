package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rfyang/arbscan/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates an OrderStore backed by the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderSelectCols = `id, opportunity_id, venue, side, base, quote,
	amount, venue_order_id, status, error, created_at`

// Insert stores the outcome of one executed leg.
func (s *OrderStore) Insert(ctx context.Context, rec domain.OrderRecord) error {
	const query = `
		INSERT INTO order_history (
			id, opportunity_id, venue, side, base, quote,
			amount, venue_order_id, status, error, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11
		)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.OpportunityID, rec.Venue, string(rec.Side),
		rec.Instrument.Base, rec.Instrument.Quote,
		rec.Amount, rec.VenueOrderID, string(rec.Status), rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert order %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns the most recent order records.
func (s *OrderStore) ListRecent(ctx context.Context, limit int) ([]domain.OrderRecord, error) {
	query := `SELECT ` + orderSelectCols + `
		FROM order_history ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// ListBefore returns order records created before the cutoff, oldest first.
func (s *OrderStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.OrderRecord, error) {
	query := `SELECT ` + orderSelectCols + `
		FROM order_history WHERE created_at < $1 ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders before %s: %w", cutoff, err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// DeleteBefore removes order records created before the cutoff.
func (s *OrderStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM order_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete orders before %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

func scanOrders(rows pgx.Rows) ([]domain.OrderRecord, error) {
	var recs []domain.OrderRecord
	for rows.Next() {
		var rec domain.OrderRecord
		var side, status string
		err := rows.Scan(
			&rec.ID, &rec.OpportunityID, &rec.Venue, &side,
			&rec.Instrument.Base, &rec.Instrument.Quote,
			&rec.Amount, &rec.VenueOrderID, &status, &rec.Error, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		rec.Side = domain.OrderSide(side)
		rec.Status = domain.OrderStatus(status)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate orders: %w", err)
	}
	return recs, nil
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
