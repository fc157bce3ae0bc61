package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/platform/db"
	"github.com/backline-erp/backline/internal/shared"
)

// Repository runs the aggregate queries behind the reports. Everything is
// computed over live entries only; soft-deleted rows never count.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AccountSums returns the debit/credit totals for one account within
// [from, to]. A zero from means "since forever".
func (r *Repository) AccountSums(ctx context.Context, accountID int64, from, to time.Time) (debit, credit decimal.Decimal, err error) {
	var d, c pgtype.Numeric
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(debit),0), COALESCE(SUM(credit),0)
	FROM ledger_entries
	WHERE account_id = $1 AND deleted_at IS NULL
	AND ($2::timestamptz IS NULL OR entry_date >= $2)
	AND entry_date <= $3`,
		accountID, nullTime(from), to).Scan(&d, &c)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: account sums: %v", shared.ErrStorage, err)
	}
	return db.NumericToDecimal(d), db.NumericToDecimal(c), nil
}

// AccountRows lists one account's live entries in the period, oldest first.
func (r *Repository) AccountRows(ctx context.Context, accountID int64, p Period) ([]LedgerRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT entry_date, memo, COALESCE(ref_type,''), COALESCE(method,''), debit, credit
	FROM ledger_entries
	WHERE account_id = $1 AND deleted_at IS NULL AND entry_date BETWEEN $2 AND $3
	ORDER BY entry_date, id`, accountID, p.From, p.To)
	if err != nil {
		return nil, fmt.Errorf("%w: account rows: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	return scanLedgerRows(rows)
}

// CashRows lists entries of cash/bank accounts in the period, optionally
// filtered by payment method.
func (r *Repository) CashRows(ctx context.Context, p Period, method string) ([]LedgerRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT e.entry_date, e.memo, COALESCE(e.ref_type,''), COALESCE(e.method,''), e.debit, e.credit
	FROM ledger_entries e
	JOIN accounts a ON a.id = e.account_id
	WHERE a.is_cash AND e.deleted_at IS NULL
	AND e.entry_date BETWEEN $1 AND $2
	AND ($3 = '' OR e.method = $3)
	ORDER BY e.entry_date, e.id`, p.From, p.To, method)
	if err != nil {
		return nil, fmt.Errorf("%w: cash rows: %v", shared.ErrStorage, err)
	}
	defer rows.Close()
	return scanLedgerRows(rows)
}

// CashSums mirrors AccountSums over all cash accounts.
func (r *Repository) CashSums(ctx context.Context, from, to time.Time, method string) (debit, credit decimal.Decimal, err error) {
	var d, c pgtype.Numeric
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(e.debit),0), COALESCE(SUM(e.credit),0)
	FROM ledger_entries e
	JOIN accounts a ON a.id = e.account_id
	WHERE a.is_cash AND e.deleted_at IS NULL
	AND ($1::timestamptz IS NULL OR e.entry_date >= $1)
	AND e.entry_date <= $2
	AND ($3 = '' OR e.method = $3)`,
		nullTime(from), to, method).Scan(&d, &c)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: cash sums: %v", shared.ErrStorage, err)
	}
	return db.NumericToDecimal(d), db.NumericToDecimal(c), nil
}

// PartyAggregate carries raw per-party sums before sign correction.
type PartyAggregate struct {
	PartyID       int64
	PartyName     string
	OpeningDebit  decimal.Decimal
	OpeningCredit decimal.Decimal
	PeriodDebit   decimal.Decimal
	PeriodCredit  decimal.Decimal
}

// PartySums aggregates per-party debit/credit totals: opening strictly before
// the period, period totals inside it. Paged by party name for stable order;
// limit <= 0 disables paging.
func (r *Repository) PartySums(ctx context.Context, partyType ledger.PartyType, p Period, limit, offset int) ([]PartyAggregate, int, error) {
	table := "customers"
	if partyType == ledger.PartySupplier {
		table = "suppliers"
	}

	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT e.party_id) FROM ledger_entries e
	WHERE e.party_type = $1 AND e.deleted_at IS NULL AND e.entry_date <= $2`,
		string(partyType), p.To).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: party count: %v", shared.ErrStorage, err)
	}

	paging := ""
	args := []any{string(partyType), p.From, p.To}
	if limit > 0 {
		paging = " LIMIT $4 OFFSET $5"
		args = append(args, limit, offset)
	}

	query := fmt.Sprintf(`SELECT e.party_id, COALESCE(pt.name, ''),
	COALESCE(SUM(e.debit) FILTER (WHERE e.entry_date < $2), 0),
	COALESCE(SUM(e.credit) FILTER (WHERE e.entry_date < $2), 0),
	COALESCE(SUM(e.debit) FILTER (WHERE e.entry_date BETWEEN $2 AND $3), 0),
	COALESCE(SUM(e.credit) FILTER (WHERE e.entry_date BETWEEN $2 AND $3), 0)
	FROM ledger_entries e
	LEFT JOIN %s pt ON pt.id = e.party_id
	WHERE e.party_type = $1 AND e.deleted_at IS NULL AND e.entry_date <= $3
	GROUP BY e.party_id, pt.name
	ORDER BY pt.name, e.party_id%s`, table, paging)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: party sums: %v", shared.ErrStorage, err)
	}
	defer rows.Close()

	var out []PartyAggregate
	for rows.Next() {
		var (
			agg            PartyAggregate
			od, oc, pd, pc pgtype.Numeric
		)
		if err := rows.Scan(&agg.PartyID, &agg.PartyName, &od, &oc, &pd, &pc); err != nil {
			return nil, 0, err
		}
		agg.OpeningDebit = db.NumericToDecimal(od)
		agg.OpeningCredit = db.NumericToDecimal(oc)
		agg.PeriodDebit = db.NumericToDecimal(pd)
		agg.PeriodCredit = db.NumericToDecimal(pc)
		out = append(out, agg)
	}
	return out, total, rows.Err()
}

func scanLedgerRows(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]LedgerRow, error) {
	var out []LedgerRow
	for rows.Next() {
		var (
			row  LedgerRow
			d, c pgtype.Numeric
		)
		if err := rows.Scan(&row.Date, &row.Memo, &row.RefType, &row.Method, &d, &c); err != nil {
			return nil, err
		}
		row.Debit = db.NumericToDecimal(d)
		row.Credit = db.NumericToDecimal(c)
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
