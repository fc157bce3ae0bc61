package balances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backline-erp/backline/internal/platform/db"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Repository persists balance snapshots in PostgreSQL.
type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// Bind returns a repository bound to an externally managed transaction.
func (r *Repository) Bind(tx pgx.Tx) *Repository {
	return &Repository{db: tx, pool: r.pool}
}

// GetAtDate returns the latest snapshot on or before the date. Missing
// history yields the zero snapshot, never an error.
func (r *Repository) GetAtDate(ctx context.Context, productID int64, date time.Time) (Snapshot, error) {
	row := r.db.QueryRow(ctx, `SELECT product_id, snapshot_date, quantity, value, avg_cost, updated_at
	FROM balance_snapshots WHERE product_id = $1 AND snapshot_date <= $2
	ORDER BY snapshot_date DESC LIMIT 1`, productID, date)

	s, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Zero(productID, date), nil
		}
		return Snapshot{}, fmt.Errorf("balances: get at date: %w", err)
	}
	return s, nil
}

// HasAfter reports whether any snapshot dated strictly after the date exists
// for the product.
func (r *Repository) HasAfter(ctx context.Context, productID int64, date time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM balance_snapshots WHERE product_id = $1 AND snapshot_date > $2)`, productID, date).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("balances: has after: %w", err)
	}
	return exists, nil
}

// Upsert creates or replaces the snapshot keyed by (product, date). Calling
// twice with the same data leaves identical stored state.
func (r *Repository) Upsert(ctx context.Context, s Snapshot) error {
	_, err := r.db.Exec(ctx, `INSERT INTO balance_snapshots (product_id, snapshot_date, quantity, value, avg_cost, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW())
	ON CONFLICT (product_id, snapshot_date)
	DO UPDATE SET quantity = EXCLUDED.quantity, value = EXCLUDED.value, avg_cost = EXCLUDED.avg_cost, updated_at = NOW()`,
		s.ProductID, s.Date,
		db.DecimalToNumeric(s.Quantity),
		db.DecimalToNumeric(s.Value),
		db.DecimalToNumeric(s.AvgCost),
	)
	if err != nil {
		return fmt.Errorf("balances: upsert: %w", err)
	}
	return nil
}

// DeleteForProduct clears a product's snapshots ahead of a rebuild.
func (r *Repository) DeleteForProduct(ctx context.Context, productID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM balance_snapshots WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("balances: delete for product: %w", err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var (
		s                   Snapshot
		qty, value, avgCost pgtype.Numeric
	)
	if err := row.Scan(&s.ProductID, &s.Date, &qty, &value, &avgCost, &s.UpdatedAt); err != nil {
		return Snapshot{}, err
	}
	s.Quantity = db.NumericToDecimal(qty)
	s.Value = db.NumericToDecimal(value)
	s.AvgCost = db.NumericToDecimal(avgCost)
	return s, nil
}
