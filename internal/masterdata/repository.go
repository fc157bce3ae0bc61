package masterdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backline-erp/backline/internal/platform/db"
	"github.com/backline-erp/backline/internal/shared"
)

// Repository persists products, customers and suppliers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProduct fetches one product.
func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, sku, name, unit, price, is_active, created_at, updated_at
	FROM products WHERE id = $1`, id)
	var (
		p     Product
		price pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Unit, &price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	p.Price = db.NumericToDecimal(price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, fmt.Errorf("masterdata: get product: %w", err)
	}
	return p, nil
}

// ListProducts pages products with keyword search over sku and name.
func (r *Repository) ListProducts(ctx context.Context, f ListFilter, pg shared.Pagination) ([]Product, int, error) {
	conditions := []string{"1=1"}
	var args []any
	argPos := 1

	if f.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf("(sku ILIKE $%d OR name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+f.Keyword+"%")
		argPos++
	}
	if f.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *f.IsActive)
		argPos++
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("masterdata: count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, sku, name, unit, price, is_active, created_at, updated_at
	FROM products %s ORDER BY sku LIMIT $%d OFFSET $%d`, where, argPos, argPos+1)
	args = append(args, pg.PerPage, pg.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("masterdata: list products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var (
			p     Product
			price pgtype.Numeric
		)
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Unit, &price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		p.Price = db.NumericToDecimal(price)
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// CreateProduct inserts a product and returns its id.
func (r *Repository) CreateProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO products (sku, name, unit, price, is_active)
	VALUES ($1, $2, $3, $4, TRUE) RETURNING id`,
		p.SKU, p.Name, p.Unit, db.DecimalToNumeric(p.Price)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("masterdata: create product: %w", err)
	}
	return id, nil
}

func partyTable(kind PartyKind) string {
	if kind == KindSupplier {
		return "suppliers"
	}
	return "customers"
}

// GetParty fetches one customer or supplier.
func (r *Repository) GetParty(ctx context.Context, kind PartyKind, id int64) (Party, error) {
	query := fmt.Sprintf(`SELECT id, code, name, phone, email, tax_id, is_active, created_at, updated_at
	FROM %s WHERE id = $1`, partyTable(kind))
	row := r.pool.QueryRow(ctx, query, id)
	var p Party
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Phone, &p.Email, &p.TaxID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Party{}, shared.ErrNotFound
		}
		return Party{}, fmt.Errorf("masterdata: get party: %w", err)
	}
	p.Kind = kind
	return p, nil
}

// ListParties pages customers or suppliers with keyword search.
func (r *Repository) ListParties(ctx context.Context, kind PartyKind, f ListFilter, pg shared.Pagination) ([]Party, int, error) {
	table := partyTable(kind)
	conditions := []string{"1=1"}
	var args []any
	argPos := 1

	if f.Keyword != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", argPos, argPos))
		args = append(args, "%"+f.Keyword+"%")
		argPos++
	}
	if f.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *f.IsActive)
		argPos++
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, table, where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("masterdata: count parties: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, code, name, phone, email, tax_id, is_active, created_at, updated_at
	FROM %s %s ORDER BY name, id LIMIT $%d OFFSET $%d`, table, where, argPos, argPos+1)
	args = append(args, pg.PerPage, pg.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("masterdata: list parties: %w", err)
	}
	defer rows.Close()

	var out []Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Phone, &p.Email, &p.TaxID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		p.Kind = kind
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// CreateParty inserts a customer or supplier and returns its id.
func (r *Repository) CreateParty(ctx context.Context, p Party) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (code, name, phone, email, tax_id, is_active)
	VALUES ($1, $2, $3, $4, $5, TRUE) RETURNING id`, partyTable(p.Kind))
	var id int64
	if err := r.pool.QueryRow(ctx, query, p.Code, p.Name, p.Phone, p.Email, p.TaxID).Scan(&id); err != nil {
		return 0, fmt.Errorf("masterdata: create party: %w", err)
	}
	return id, nil
}
