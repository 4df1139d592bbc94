package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// OpportunityStore persists detected opportunity history.
type OpportunityStore interface {
	Insert(ctx context.Context, opp Opportunity) error
	MarkExecuted(ctx context.Context, id string) error
	ListRecent(ctx context.Context, limit int) ([]Opportunity, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]Opportunity, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderStore persists the outcome of executed legs.
type OrderStore interface {
	Insert(ctx context.Context, rec OrderRecord) error
	ListRecent(ctx context.Context, limit int) ([]OrderRecord, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]OrderRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
