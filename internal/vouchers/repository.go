package vouchers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/backline-erp/backline/internal/balances"
	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/platform/db"
	"github.com/backline-erp/backline/internal/shared"
)

// TxOps groups every write the posting and voiding flows perform. All of it
// runs inside one transaction so the document and its ledger entries commit
// or roll back together.
type TxOps interface {
	InsertVoucher(ctx context.Context, v Voucher) error
	GetVoucherForUpdate(ctx context.Context, id uuid.UUID) (Voucher, error)
	MarkVoided(ctx context.Context, id uuid.UUID) error
	RecordEntry(ctx context.Context, e ledger.Entry) (int64, error)
	CountEntriesByReference(ctx context.Context, refType string, refID uuid.UUID) (int64, error)
	DeleteEntriesByReference(ctx context.Context, refType string, refID uuid.UUID) (int64, error)
	GetSnapshotAtDate(ctx context.Context, productID int64, date time.Time) (balances.Snapshot, error)
	HasSnapshotAfter(ctx context.Context, productID int64, date time.Time) (bool, error)
	UpsertSnapshot(ctx context.Context, s balances.Snapshot) error
}

// TxPort abstracts the transaction boundary for the service.
type TxPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxOps) error) error
}

// Repository persists vouchers and composes the ledger and snapshot
// repositories under one transaction.
type Repository struct {
	pool     *pgxpool.Pool
	ledger   *ledger.Repository
	balances *balances.Repository
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, ledgerRepo *ledger.Repository, balanceRepo *balances.Repository) *Repository {
	return &Repository{pool: pool, ledger: ledgerRepo, balances: balanceRepo}
}

// WithTx executes fn within one repeatable-read transaction shared by the
// voucher, ledger and snapshot writes.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxOps) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		ops := &txOps{
			tx:       tx,
			ledger:   r.ledger.Bind(tx),
			balances: r.balances.Bind(tx),
		}
		return fn(ctx, ops)
	})
}

type txOps struct {
	tx       pgx.Tx
	ledger   *ledger.Repository
	balances *balances.Repository
}

const voucherColumns = `id, code, kind, party_type, party_id, cash_account_id, debt_account_id, amount, voucher_date, method, memo, status, product_id, quantity, unit_cost, created_by, created_at, voided_at`

func (o *txOps) InsertVoucher(ctx context.Context, v Voucher) error {
	_, err := o.tx.Exec(ctx, `INSERT INTO vouchers
	(id, code, kind, party_type, party_id, cash_account_id, debt_account_id, amount, voucher_date, method, memo, status, product_id, quantity, unit_cost, created_by)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		v.ID, v.Code, string(v.Kind), string(v.PartyType), v.PartyID,
		v.CashAccountID, v.DebtAccountID, db.DecimalToNumeric(v.Amount),
		v.Date, v.Method, v.Memo, string(StatusPosted),
		pgtype.Int8{Int64: v.ProductID, Valid: v.ProductID != 0},
		db.DecimalToNumeric(v.Quantity), db.DecimalToNumeric(v.UnitCost),
		pgtype.Int8{Int64: v.CreatedBy, Valid: v.CreatedBy != 0},
	)
	if err != nil {
		return fmt.Errorf("vouchers: insert: %w", err)
	}
	return nil
}

func (o *txOps) GetVoucherForUpdate(ctx context.Context, id uuid.UUID) (Voucher, error) {
	row := o.tx.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1 FOR UPDATE`, id)
	return scanVoucher(row)
}

func (o *txOps) MarkVoided(ctx context.Context, id uuid.UUID) error {
	tag, err := o.tx.Exec(ctx, `UPDATE vouchers SET status = $1, voided_at = NOW() WHERE id = $2 AND status = $3`,
		string(StatusVoided), id, string(StatusPosted))
	if err != nil {
		return fmt.Errorf("vouchers: mark voided: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (o *txOps) RecordEntry(ctx context.Context, e ledger.Entry) (int64, error) {
	return o.ledger.Record(ctx, e)
}

func (o *txOps) CountEntriesByReference(ctx context.Context, refType string, refID uuid.UUID) (int64, error) {
	entries, err := o.ledger.FindByReference(ctx, refType, refID)
	if err != nil {
		return 0, err
	}
	return int64(len(entries)), nil
}

func (o *txOps) DeleteEntriesByReference(ctx context.Context, refType string, refID uuid.UUID) (int64, error) {
	return o.ledger.DeleteByReference(ctx, refType, refID)
}

func (o *txOps) GetSnapshotAtDate(ctx context.Context, productID int64, date time.Time) (balances.Snapshot, error) {
	return o.balances.GetAtDate(ctx, productID, date)
}

func (o *txOps) HasSnapshotAfter(ctx context.Context, productID int64, date time.Time) (bool, error) {
	return o.balances.HasAfter(ctx, productID, date)
}

func (o *txOps) UpsertSnapshot(ctx context.Context, s balances.Snapshot) error {
	return o.balances.Upsert(ctx, s)
}

// Get fetches a voucher by id outside any transaction.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Voucher, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id)
	return scanVoucher(row)
}

// List pages vouchers newest first, optionally filtered by kind.
func (r *Repository) List(ctx context.Context, kind Kind, p shared.Pagination) ([]Voucher, int, error) {
	where := `WHERE ($1 = '' OR kind = $1)`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vouchers `+where, string(kind)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("vouchers: count: %w", err)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+voucherColumns+` FROM vouchers `+where+
		` ORDER BY voucher_date DESC, created_at DESC LIMIT $2 OFFSET $3`, string(kind), p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("vouchers: list: %w", err)
	}
	defer rows.Close()

	var out []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, rows.Err()
}

func scanVoucher(row pgx.Row) (Voucher, error) {
	var (
		v                    Voucher
		kind, party, status  string
		productID, createdBy pgtype.Int8
		amount, qty, cost    pgtype.Numeric
		voidedAt             pgtype.Timestamptz
	)
	err := row.Scan(&v.ID, &v.Code, &kind, &party, &v.PartyID, &v.CashAccountID, &v.DebtAccountID,
		&amount, &v.Date, &v.Method, &v.Memo, &status, &productID, &qty, &cost, &createdBy, &v.CreatedAt, &voidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Voucher{}, shared.ErrNotFound
		}
		return Voucher{}, err
	}
	v.Kind = Kind(kind)
	v.PartyType = ledger.PartyType(party)
	v.Status = Status(status)
	v.Amount = db.NumericToDecimal(amount)
	v.ProductID = productID.Int64
	v.Quantity = db.NumericToDecimal(qty)
	v.UnitCost = db.NumericToDecimal(cost)
	v.CreatedBy = createdBy.Int64
	if voidedAt.Valid {
		t := voidedAt.Time
		v.VoidedAt = &t
	}
	return v, nil
}
