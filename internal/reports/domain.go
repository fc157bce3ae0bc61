package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/accounts"
	"github.com/backline-erp/backline/internal/shared"
)

// ErrInvalidParty rejects debt reports over an unknown counterparty kind.
var ErrInvalidParty = fmt.Errorf("%w: party type must be CUSTOMER or SUPPLIER", shared.ErrValidation)

// Period is a closed report window [From, To].
type Period struct {
	From time.Time
	To   time.Time
}

// NewPeriod builds a period, rejecting inverted ranges before any query runs.
func NewPeriod(from, to time.Time) (Period, error) {
	if from.IsZero() || to.IsZero() {
		return Period{}, fmt.Errorf("%w: period requires both bounds", shared.ErrValidation)
	}
	if to.Before(from) {
		return Period{}, fmt.Errorf("%w: period end before start", shared.ErrValidation)
	}
	return Period{From: from, To: to}, nil
}

// MonthPeriod covers one calendar month.
func MonthPeriod(year int, month time.Month) (Period, error) {
	if year < 1 || month < time.January || month > time.December {
		return Period{}, fmt.Errorf("%w: bad month %d/%d", shared.ErrValidation, month, year)
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.AddDate(0, 1, -1)}, nil
}

// Label renders the window for display.
func (p Period) Label() string {
	return p.From.Format("2006-01-02") + " .. " + p.To.Format("2006-01-02")
}

// PeriodSummary holds opening/closing balances plus period totals for one
// account or party, signed per the normal-balance convention.
type PeriodSummary struct {
	Opening decimal.Decimal `json:"opening"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Closing decimal.Decimal `json:"closing"`
}

// Summarize computes the closing balance. On a debit-normal account debits
// increase the balance; on a credit-normal account credits do.
func Summarize(normal accounts.NormalBalance, opening, debit, credit decimal.Decimal) PeriodSummary {
	closing := opening.Add(debit).Sub(credit)
	if normal == accounts.NormalCredit {
		closing = opening.Add(credit).Sub(debit)
	}
	return PeriodSummary{Opening: opening, Debit: debit, Credit: credit, Closing: closing}
}

// SignedOpening converts raw debit/credit sums accumulated strictly before the
// period into an opening balance on the account's normal side.
func SignedOpening(normal accounts.NormalBalance, debit, credit decimal.Decimal) decimal.Decimal {
	if normal == accounts.NormalCredit {
		return credit.Sub(debit)
	}
	return debit.Sub(credit)
}

// LedgerRow is one general-ledger or cash-book line with a running balance.
type LedgerRow struct {
	Date    time.Time
	Memo    string
	RefType string
	Method  string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Running decimal.Decimal
}

// GeneralLedger is the per-account report output.
type GeneralLedger struct {
	Account accounts.Account
	Period  Period
	Summary PeriodSummary
	Rows    []LedgerRow
}

// CashBook is the cash/bank movement report output.
type CashBook struct {
	Period  Period
	Method  string
	Summary PeriodSummary
	Rows    []LedgerRow
}

// DebtRow is one counterparty's debt position for a period.
type DebtRow struct {
	PartyID   int64         `json:"party_id"`
	PartyName string        `json:"party_name"`
	Summary   PeriodSummary `json:"summary"`
}

// DebtSummary is the paginated debt report: empty pages come back as
// {data: [], total: 0}, never an error.
type DebtSummary struct {
	Data  []DebtRow `json:"data"`
	Total int       `json:"total"`
}

// RankCreditors orders rows by closing balance descending, keeps only
// positive balances and truncates to limit. The sort is stable so identical
// inputs always produce the identical list.
func RankCreditors(rows []DebtRow, limit int) []DebtRow {
	filtered := make([]DebtRow, 0, len(rows))
	for _, r := range rows {
		if r.Summary.Closing.IsPositive() {
			filtered = append(filtered, r)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Summary.Closing.GreaterThan(filtered[j].Summary.Closing)
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered
}
