package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// CycleStore implements domain.CycleStore using PostgreSQL.
type CycleStore struct {
	pool *pgxpool.Pool
}

// NewCycleStore creates a new CycleStore backed by the given connection pool.
func NewCycleStore(pool *pgxpool.Pool) *CycleStore {
	return &CycleStore{pool: pool}
}

const cycleSelectCols = `id, product_id, status, buy_order_id, buy_price, size,
	sell_order_id, sell_price, acquired_price, acquired_cost,
	proceeds, profit, split_amount, split_currency, fail_reason,
	started_at, completed_at`

func scanCycleRows(rows pgx.Rows) ([]domain.Cycle, error) {
	var cycles []domain.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

func scanCycle(row pgx.Row) (domain.Cycle, error) {
	var c domain.Cycle
	err := row.Scan(
		&c.ID, &c.ProductID, &c.Status, &c.BuyOrderID, &c.BuyPrice, &c.Size,
		&c.SellOrderID, &c.SellPrice, &c.AcquiredPrice, &c.AcquiredCost,
		&c.Proceeds, &c.Profit, &c.SplitAmount, &c.SplitCurrency, &c.FailReason,
		&c.StartedAt, &c.CompletedAt,
	)
	return c, err
}

// Create inserts a new cycle row.
func (s *CycleStore) Create(ctx context.Context, c domain.Cycle) error {
	const query = `
		INSERT INTO cycles (
			id, product_id, status, buy_order_id, buy_price, size,
			sell_order_id, sell_price, acquired_price, acquired_cost,
			proceeds, profit, split_amount, split_currency, fail_reason,
			started_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17
		)`
	_, err := s.pool.Exec(ctx, query,
		c.ID, c.ProductID, c.Status, c.BuyOrderID, c.BuyPrice, c.Size,
		c.SellOrderID, c.SellPrice, c.AcquiredPrice, c.AcquiredCost,
		c.Proceeds, c.Profit, c.SplitAmount, c.SplitCurrency, c.FailReason,
		c.StartedAt, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create cycle: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an existing cycle row.
func (s *CycleStore) Update(ctx context.Context, c domain.Cycle) error {
	const query = `
		UPDATE cycles SET
			status = $2, buy_order_id = $3, buy_price = $4, size = $5,
			sell_order_id = $6, sell_price = $7,
			acquired_price = $8, acquired_cost = $9,
			proceeds = $10, profit = $11, split_amount = $12,
			split_currency = $13, fail_reason = $14, completed_at = $15
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		c.ID, c.Status, c.BuyOrderID, c.BuyPrice, c.Size,
		c.SellOrderID, c.SellPrice,
		c.AcquiredPrice, c.AcquiredCost,
		c.Proceeds, c.Profit, c.SplitAmount,
		c.SplitCurrency, c.FailReason, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update cycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update cycle %s: %w", c.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID fetches a single cycle.
func (s *CycleStore) GetByID(ctx context.Context, id string) (domain.Cycle, error) {
	query := `SELECT ` + cycleSelectCols + ` FROM cycles WHERE id = $1`
	c, err := scanCycle(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Cycle{}, fmt.Errorf("postgres: cycle %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Cycle{}, fmt.Errorf("postgres: get cycle: %w", err)
	}
	return c, nil
}

// ListRecent returns cycles ordered most recent first.
func (s *CycleStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Cycle, error) {
	query := `SELECT ` + cycleSelectCols + ` FROM cycles ORDER BY started_at DESC`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent cycles: %w", err)
	}
	defer rows.Close()

	cycles, err := scanCycleRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent cycles: %w", err)
	}
	return cycles, nil
}

// ListBefore returns all cycles started strictly before the given time, in
// start order, for archiving.
func (s *CycleStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Cycle, error) {
	query := `SELECT ` + cycleSelectCols + ` FROM cycles WHERE started_at < $1 ORDER BY started_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cycles before: %w", err)
	}
	defer rows.Close()
	return scanCycleRows(rows)
}

// DeleteBefore removes cycles started before the given time. Returns the
// number deleted. Orders and transfers for those cycles must be deleted
// first to satisfy the foreign keys.
func (s *CycleStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cycles WHERE started_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete cycles before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.CycleStore = (*CycleStore)(nil)
