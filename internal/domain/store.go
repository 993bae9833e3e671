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

// CycleStore persists trading cycle records.
type CycleStore interface {
	Create(ctx context.Context, c Cycle) error
	Update(ctx context.Context, c Cycle) error
	GetByID(ctx context.Context, id string) (Cycle, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Cycle, error)
	ListBefore(ctx context.Context, before time.Time) ([]Cycle, error)
}

// OrderStore persists the bot's order journal.
type OrderStore interface {
	Create(ctx context.Context, cycleID string, o Order) error
	RecordResult(ctx context.Context, o Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	ListByCycle(ctx context.Context, cycleID string) ([]Order, error)
	ListBefore(ctx context.Context, before time.Time) ([]Order, error)
}

// TransferStore persists profit-split transfers.
type TransferStore interface {
	Create(ctx context.Context, t Transfer) error
	ListByCycle(ctx context.Context, cycleID string) ([]Transfer, error)
	ListBefore(ctx context.Context, before time.Time) ([]Transfer, error)
}
