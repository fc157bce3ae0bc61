package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backline-erp/backline/internal/shared"
)

// Repository reads the chart of accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches an account by id.
func (r *Repository) Get(ctx context.Context, id int64) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, code, name, type, is_cash, is_active, created_at, updated_at FROM accounts WHERE id = $1`, id)
	return scanAccount(row)
}

// GetByCode fetches an account by its code.
func (r *Repository) GetByCode(ctx context.Context, code string) (Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, code, name, type, is_cash, is_active, created_at, updated_at FROM accounts WHERE code = $1`, code)
	return scanAccount(row)
}

// List returns all active accounts ordered by code.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, type, is_cash, is_active, created_at, updated_at FROM accounts WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("accounts: list: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.IsCash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListByType returns active accounts of the given type ordered by code.
func (r *Repository) ListByType(ctx context.Context, t AccountType) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, type, is_cash, is_active, created_at, updated_at FROM accounts WHERE is_active AND type = $1 ORDER BY code`, t)
	if err != nil {
		return nil, fmt.Errorf("accounts: list by type: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.IsCash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.IsCash, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return a, nil
}
