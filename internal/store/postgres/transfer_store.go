package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Mikesteam1234/crypfinder/internal/domain"
)

// TransferStore implements domain.TransferStore using PostgreSQL.
type TransferStore struct {
	pool *pgxpool.Pool
}

// NewTransferStore creates a new TransferStore backed by the given connection pool.
func NewTransferStore(pool *pgxpool.Pool) *TransferStore {
	return &TransferStore{pool: pool}
}

const transferSelectCols = `id, cycle_id, from_profile, to_profile, currency, amount, created_at`

func scanTransferRows(rows pgx.Rows) ([]domain.Transfer, error) {
	var transfers []domain.Transfer
	for rows.Next() {
		var t domain.Transfer
		if err := rows.Scan(
			&t.ID, &t.CycleID, &t.From, &t.To, &t.Currency, &t.Amount, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// Create inserts a transfer row.
func (s *TransferStore) Create(ctx context.Context, t domain.Transfer) error {
	const query = `
		INSERT INTO transfers (
			id, cycle_id, from_profile, to_profile, currency, amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, query,
		t.ID, t.CycleID, t.From, t.To, t.Currency, t.Amount, createdAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create transfer: %w", err)
	}
	return nil
}

// ListByCycle returns the transfers recorded for one cycle.
func (s *TransferStore) ListByCycle(ctx context.Context, cycleID string) ([]domain.Transfer, error) {
	query := `SELECT ` + transferSelectCols + ` FROM transfers WHERE cycle_id = $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, cycleID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transfers by cycle: %w", err)
	}
	defer rows.Close()

	transfers, err := scanTransferRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan transfers by cycle: %w", err)
	}
	return transfers, nil
}

// ListBefore returns all transfers created strictly before the given time (for archiving).
func (s *TransferStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Transfer, error) {
	query := `SELECT ` + transferSelectCols + ` FROM transfers WHERE created_at < $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list transfers before: %w", err)
	}
	defer rows.Close()
	return scanTransferRows(rows)
}

// DeleteBefore removes transfers created before the given time. Returns the number deleted.
func (s *TransferStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transfers WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete transfers before: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Compile-time interface check.
var _ domain.TransferStore = (*TransferStore)(nil)
