package reports

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/backline-erp/backline/internal/accounts"
	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/shared"
)

type fakeStore struct {
	rows    []LedgerRow
	parties []PartyAggregate
}

func (f *fakeStore) AccountSums(ctx context.Context, accountID int64, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, r := range f.rows {
		if (from.IsZero() || !r.Date.Before(from)) && !r.Date.After(to) {
			debit = debit.Add(r.Debit)
			credit = credit.Add(r.Credit)
		}
	}
	return debit, credit, nil
}

func (f *fakeStore) AccountRows(ctx context.Context, accountID int64, p Period) ([]LedgerRow, error) {
	var out []LedgerRow
	for _, r := range f.rows {
		if !r.Date.Before(p.From) && !r.Date.After(p.To) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CashRows(ctx context.Context, p Period, method string) ([]LedgerRow, error) {
	var out []LedgerRow
	for _, r := range f.rows {
		if !r.Date.Before(p.From) && !r.Date.After(p.To) && (method == "" || r.Method == method) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) CashSums(ctx context.Context, from, to time.Time, method string) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	for _, r := range f.rows {
		if (from.IsZero() || !r.Date.Before(from)) && !r.Date.After(to) && (method == "" || r.Method == method) {
			debit = debit.Add(r.Debit)
			credit = credit.Add(r.Credit)
		}
	}
	return debit, credit, nil
}

func (f *fakeStore) PartySums(ctx context.Context, partyType ledger.PartyType, p Period, limit, offset int) ([]PartyAggregate, int, error) {
	total := len(f.parties)
	out := f.parties
	if limit > 0 {
		if offset >= len(out) {
			return nil, total, nil
		}
		out = out[offset:]
		if len(out) > limit {
			out = out[:limit]
		}
	}
	return out, total, nil
}

type fakeAccounts struct {
	account accounts.Account
	err     error
}

func (f *fakeAccounts) Get(ctx context.Context, id int64) (accounts.Account, error) {
	if f.err != nil {
		return accounts.Account{}, f.err
	}
	return f.account, nil
}

func jan(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func janPeriod(t *testing.T) Period {
	t.Helper()
	p, err := MonthPeriod(2024, time.January)
	require.NoError(t, err)
	return p
}

func TestGeneralLedgerAssetClosing(t *testing.T) {
	store := &fakeStore{rows: []LedgerRow{
		{Date: jan(5), Debit: d(100), Credit: decimal.Zero},
		{Date: jan(20), Debit: decimal.Zero, Credit: d(40)},
	}}
	accts := &fakeAccounts{account: accounts.Account{ID: 1, Code: "111", Type: accounts.TypeAsset}}
	svc := NewService(store, accts, nil)

	gl, err := svc.GeneralLedger(context.Background(), 1, janPeriod(t))
	require.NoError(t, err)
	require.True(t, gl.Summary.Opening.IsZero())
	require.True(t, gl.Summary.Debit.Equal(d(100)))
	require.True(t, gl.Summary.Credit.Equal(d(40)))
	require.True(t, gl.Summary.Closing.Equal(d(60)))

	require.Len(t, gl.Rows, 2)
	require.True(t, gl.Rows[0].Running.Equal(d(100)))
	require.True(t, gl.Rows[1].Running.Equal(d(60)))
}

func TestGeneralLedgerOpeningFromHistory(t *testing.T) {
	store := &fakeStore{rows: []LedgerRow{
		{Date: time.Date(2023, 12, 10, 0, 0, 0, 0, time.UTC), Debit: d(500), Credit: decimal.Zero},
		{Date: jan(5), Debit: decimal.Zero, Credit: d(200)},
	}}
	accts := &fakeAccounts{account: accounts.Account{ID: 1, Code: "111", Type: accounts.TypeAsset}}
	svc := NewService(store, accts, nil)

	gl, err := svc.GeneralLedger(context.Background(), 1, janPeriod(t))
	require.NoError(t, err)
	require.True(t, gl.Summary.Opening.Equal(d(500)))
	require.True(t, gl.Summary.Closing.Equal(d(300)))
}

func TestGeneralLedgerUnknownAccount(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeAccounts{err: shared.ErrNotFound}, nil)
	_, err := svc.GeneralLedger(context.Background(), 99, janPeriod(t))
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCashBookRunningBalance(t *testing.T) {
	store := &fakeStore{rows: []LedgerRow{
		{Date: jan(2), Method: "CASH", Debit: d(1000), Credit: decimal.Zero},
		{Date: jan(8), Method: "CASH", Debit: decimal.Zero, Credit: d(300)},
		{Date: jan(9), Method: "BANK", Debit: d(50), Credit: decimal.Zero},
	}}
	svc := NewService(store, &fakeAccounts{}, nil)

	cb, err := svc.CashBook(context.Background(), janPeriod(t), "CASH")
	require.NoError(t, err)
	require.Len(t, cb.Rows, 2)
	require.True(t, cb.Rows[1].Running.Equal(d(700)))
	require.True(t, cb.Summary.Closing.Equal(d(700)))
}

func TestDebtSummaryEmptyIsNotAnError(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeAccounts{}, nil)
	sum, err := svc.DebtSummary(context.Background(), ledger.PartyCustomer, janPeriod(t), 1, 10)
	require.NoError(t, err)
	require.NotNil(t, sum.Data)
	require.Empty(t, sum.Data)
	require.Zero(t, sum.Total)
}

func TestDebtSummarySupplierSide(t *testing.T) {
	store := &fakeStore{parties: []PartyAggregate{
		{
			PartyID: 7, PartyName: "Acme",
			OpeningDebit: decimal.Zero, OpeningCredit: d(100),
			PeriodDebit: d(30), PeriodCredit: d(80),
		},
	}}
	svc := NewService(store, &fakeAccounts{}, nil)

	sum, err := svc.DebtSummary(context.Background(), ledger.PartySupplier, janPeriod(t), 1, 10)
	require.NoError(t, err)
	require.Len(t, sum.Data, 1)
	row := sum.Data[0]
	// Supplier debt is credit-normal: opening 100, +80 credit, -30 debit.
	require.True(t, row.Summary.Opening.Equal(d(100)))
	require.True(t, row.Summary.Closing.Equal(d(150)))
}

func TestDebtSummaryRejectsUnknownParty(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeAccounts{}, nil)
	_, err := svc.DebtSummary(context.Background(), "VENDOR", janPeriod(t), 1, 10)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestTopCreditors(t *testing.T) {
	store := &fakeStore{parties: []PartyAggregate{
		{PartyID: 1, PartyName: "low", OpeningCredit: d(10)},
		{PartyID: 2, PartyName: "high", OpeningCredit: d(900)},
		{PartyID: 3, PartyName: "paid", OpeningDebit: d(50), OpeningCredit: d(50)},
	}}
	svc := NewService(store, &fakeAccounts{}, nil)

	top, err := svc.TopCreditors(context.Background(), janPeriod(t), 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, int64(2), top[0].PartyID)
	require.Equal(t, int64(1), top[1].PartyID)
}
