package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backline-erp/backline/internal/platform/db"
	"github.com/backline-erp/backline/internal/shared"
)

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Repository persists ledger entries in PostgreSQL. Reads work on the pool;
// Record and DeleteByReference refuse to run outside WithTx so that entry
// writes always share the originating document's transaction.
type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
	inTx bool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// WithTx executes fn with a transaction-bound repository.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, *Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{db: tx, pool: r.pool, inTx: true})
	})
}

// Bind returns a repository bound to an externally managed transaction, used
// when another module owns the transaction boundary.
func (r *Repository) Bind(tx pgx.Tx) *Repository {
	return &Repository{db: tx, pool: r.pool, inTx: true}
}

const entryColumns = `id, account_id, product_id, party_type, party_id, entry_date, debit, credit, quantity, unit_cost, movement, method, ref_type, ref_id, memo, created_by, created_at, deleted_at`

// Record appends a movement. Transaction-scoped only.
func (r *Repository) Record(ctx context.Context, e Entry) (int64, error) {
	if !r.inTx {
		return 0, ErrNoTransaction
	}
	if err := e.Validate(); err != nil {
		return 0, err
	}
	row := r.db.QueryRow(ctx, `INSERT INTO ledger_entries
	(account_id, product_id, party_type, party_id, entry_date, debit, credit, quantity, unit_cost, movement, method, ref_type, ref_id, memo, created_by)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15) RETURNING id`,
		e.AccountID,
		nullInt(e.ProductID),
		nullStr(string(e.PartyType)),
		nullInt(e.PartyID),
		e.Date,
		db.DecimalToNumeric(e.Debit),
		db.DecimalToNumeric(e.Credit),
		db.DecimalToNumeric(e.Quantity),
		db.DecimalToNumeric(e.UnitCost),
		nullStr(string(e.Movement)),
		nullStr(e.Method),
		nullStr(e.RefType),
		nullUUID(e.RefID),
		e.Memo,
		nullInt(e.CreatedBy),
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("ledger: record: %w", err)
	}
	return id, nil
}

// Aggregate sums matching live entries. Absent bounds mean unbounded; an
// absent movement type matches every movement. No rows means zero totals.
func (r *Repository) Aggregate(ctx context.Context, f AggregateFilter) (Totals, error) {
	if err := f.Validate(); err != nil {
		return Totals{}, err
	}
	conditions := []string{"deleted_at IS NULL"}
	var args []any
	argPos := 1

	if f.ProductID != 0 {
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", argPos))
		args = append(args, f.ProductID)
		argPos++
	}
	if f.AccountID != 0 {
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", argPos))
		args = append(args, f.AccountID)
		argPos++
	}
	if !f.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("entry_date >= $%d", argPos))
		args = append(args, f.From)
		argPos++
	}
	if !f.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("entry_date <= $%d", argPos))
		args = append(args, f.To)
		argPos++
	}
	if f.Movement != "" {
		conditions = append(conditions, fmt.Sprintf("movement = $%d", argPos))
		args = append(args, string(f.Movement))
		argPos++
	}

	query := fmt.Sprintf(`SELECT
	COALESCE(SUM(CASE WHEN movement = 'OUT' THEN -quantity ELSE quantity END), 0),
	COALESCE(SUM(CASE WHEN movement = 'OUT' THEN -quantity*unit_cost ELSE quantity*unit_cost END), 0),
	COALESCE(SUM(debit), 0),
	COALESCE(SUM(credit), 0)
	FROM ledger_entries WHERE %s`, strings.Join(conditions, " AND "))

	var qty, value, debit, credit pgtype.Numeric
	if err := r.db.QueryRow(ctx, query, args...).Scan(&qty, &value, &debit, &credit); err != nil {
		return Totals{}, fmt.Errorf("ledger: aggregate: %w", err)
	}
	return Totals{
		Quantity: db.NumericToDecimal(qty),
		Value:    db.NumericToDecimal(value),
		Debit:    db.NumericToDecimal(debit),
		Credit:   db.NumericToDecimal(credit),
	}, nil
}

// FindByReference lists live entries posted by the given source document.
func (r *Repository) FindByReference(ctx context.Context, refType string, refID uuid.UUID) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
	WHERE ref_type = $1 AND ref_id = $2 AND deleted_at IS NULL ORDER BY id`, refType, refID)
	if err != nil {
		return nil, fmt.Errorf("ledger: find by reference: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// DeleteByReference soft-deletes all live entries of a source document and
// returns the affected count. Transaction-scoped only: the caller must run it
// in the same transaction that removes the document itself.
func (r *Repository) DeleteByReference(ctx context.Context, refType string, refID uuid.UUID) (int64, error) {
	if !r.inTx {
		return 0, ErrNoTransaction
	}
	tag, err := r.db.Exec(ctx, `UPDATE ledger_entries SET deleted_at = NOW()
	WHERE ref_type = $1 AND ref_id = $2 AND deleted_at IS NULL`, refType, refID)
	if err != nil {
		return 0, fmt.Errorf("ledger: delete by reference: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListByProduct pages through a product's live entries in posting order.
func (r *Repository) ListByProduct(ctx context.Context, productID int64, p shared.Pagination) ([]Entry, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE product_id = $1 AND deleted_at IS NULL`, productID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ledger: count by product: %w", err)
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
	WHERE product_id = $1 AND deleted_at IS NULL ORDER BY entry_date, id LIMIT $2 OFFSET $3`,
		productID, p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("ledger: list by product: %w", err)
	}
	defer rows.Close()
	entries, err := scanEntries(rows)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListByProductUpTo streams every live entry of a product dated on or before
// the cutoff, in posting order. Used by snapshot rebuild and verification.
func (r *Repository) ListByProductUpTo(ctx context.Context, productID int64, cutoff time.Time) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM ledger_entries
	WHERE product_id = $1 AND entry_date <= $2 AND deleted_at IS NULL ORDER BY entry_date, id`, productID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("ledger: list by product up to: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ProductIDs returns the distinct products with live ledger history.
func (r *Repository) ProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT product_id FROM ledger_entries WHERE product_id IS NOT NULL AND deleted_at IS NULL ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("ledger: product ids: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e                              Entry
			productID, partyID, createdBy  pgtype.Int8
			partyType, movement, method    pgtype.Text
			refType                        pgtype.Text
			refID                          pgtype.UUID
			debit, credit, qty, unitCost   pgtype.Numeric
			deletedAt                      pgtype.Timestamptz
		)
		err := rows.Scan(&e.ID, &e.AccountID, &productID, &partyType, &partyID, &e.Date,
			&debit, &credit, &qty, &unitCost, &movement, &method, &refType, &refID,
			&e.Memo, &createdBy, &e.CreatedAt, &deletedAt)
		if err != nil {
			return nil, err
		}
		e.ProductID = productID.Int64
		e.PartyType = PartyType(partyType.String)
		e.PartyID = partyID.Int64
		e.Debit = db.NumericToDecimal(debit)
		e.Credit = db.NumericToDecimal(credit)
		e.Quantity = db.NumericToDecimal(qty)
		e.UnitCost = db.NumericToDecimal(unitCost)
		e.Movement = MovementType(movement.String)
		e.Method = method.String
		e.RefType = refType.String
		if refID.Valid {
			e.RefID = uuid.UUID(refID.Bytes)
		}
		e.CreatedBy = createdBy.Int64
		if deletedAt.Valid {
			t := deletedAt.Time
			e.DeletedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullInt(v int64) pgtype.Int8 {
	return pgtype.Int8{Int64: v, Valid: v != 0}
}

func nullStr(v string) pgtype.Text {
	return pgtype.Text{String: v, Valid: v != ""}
}

func nullUUID(v uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: v, Valid: v != uuid.Nil}
}
