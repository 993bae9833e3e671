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

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderSelectCols = `id, client_oid, product_id, side, price, size,
	status, done_reason, executed_value, fill_fees, filled_size,
	created_at, done_at`

func scanOrderRows(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID, &o.ClientOID, &o.ProductID, &o.Side, &o.Price, &o.Size,
		&o.Status, &o.DoneReason, &o.ExecutedValue, &o.FillFees, &o.FilledSize,
		&o.CreatedAt, &o.DoneAt,
	)
	return o, err
}

// Create inserts an order row as it was submitted.
func (s *OrderStore) Create(ctx context.Context, cycleID string, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, cycle_id, client_oid, product_id, side, price, size,
			status, done_reason, executed_value, fill_fees, filled_size,
			created_at, done_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14
		)`
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, query,
		o.ID, cycleID, o.ClientOID, o.ProductID, o.Side, o.Price, o.Size,
		o.Status, o.DoneReason, o.ExecutedValue, o.FillFees, o.FilledSize,
		createdAt, o.DoneAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create order: %w", err)
	}
	return nil
}

// RecordResult writes the terminal state of a previously created order.
func (s *OrderStore) RecordResult(ctx context.Context, o domain.Order) error {
	const query = `
		UPDATE orders SET
			status = $2, done_reason = $3,
			executed_value = $4, fill_fees = $5, filled_size = $6,
			done_at = $7
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		o.ID, o.Status, o.DoneReason,
		o.ExecutedValue, o.FillFees, o.FilledSize,
		o.DoneAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: record order result %s: %w", o.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID fetches a single order.
func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders WHERE id = $1`
	o, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, fmt.Errorf("postgres: order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("postgres: get order: %w", err)
	}
	return o, nil
}

// ListByCycle returns the orders of one cycle in submission order.
func (s *OrderStore) ListByCycle(ctx context.Context, cycleID string) ([]domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders WHERE cycle_id = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders by cycle: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan orders by cycle: %w", err)
	}
	return orders, nil
}

// ListBefore returns all orders created strictly before the given time (for archiving).
func (s *OrderStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders WHERE created_at < $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders before: %w", err)
	}
	defer rows.Close()
	return scanOrderRows(rows)
}

// DeleteBefore removes orders created before the given time. Returns the number deleted.
func (s *OrderStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete orders before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
