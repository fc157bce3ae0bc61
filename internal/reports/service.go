package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/accounts"
	"github.com/backline-erp/backline/internal/ledger"
)

// StorePort abstracts the aggregate queries for the service.
type StorePort interface {
	AccountSums(ctx context.Context, accountID int64, from, to time.Time) (debit, credit decimal.Decimal, err error)
	AccountRows(ctx context.Context, accountID int64, p Period) ([]LedgerRow, error)
	CashRows(ctx context.Context, p Period, method string) ([]LedgerRow, error)
	CashSums(ctx context.Context, from, to time.Time, method string) (debit, credit decimal.Decimal, err error)
	PartySums(ctx context.Context, partyType ledger.PartyType, p Period, limit, offset int) ([]PartyAggregate, int, error)
}

// AccountPort abstracts chart-of-accounts lookups.
type AccountPort interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// Service folds ledger aggregates into period reports. Read-only; any store
// failure surfaces as one reportable error, never partial data.
type Service struct {
	store    StorePort
	accounts AccountPort
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(store StorePort, accountRepo AccountPort, logger *slog.Logger) *Service {
	return &Service{store: store, accounts: accountRepo, logger: logger}
}

// GeneralLedger builds the per-account ledger report: opening from sums
// strictly before the period, rows and totals within it, closing per the
// account's normal side.
func (s *Service) GeneralLedger(ctx context.Context, accountID int64, p Period) (GeneralLedger, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return GeneralLedger{}, err
	}
	normal := account.NormalBalance()

	openDebit, openCredit, err := s.store.AccountSums(ctx, accountID, time.Time{}, p.From.Add(-time.Nanosecond))
	if err != nil {
		return GeneralLedger{}, err
	}
	opening := SignedOpening(normal, openDebit, openCredit)

	rows, err := s.store.AccountRows(ctx, accountID, p)
	if err != nil {
		return GeneralLedger{}, err
	}

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	running := opening
	for i, row := range rows {
		totalDebit = totalDebit.Add(row.Debit)
		totalCredit = totalCredit.Add(row.Credit)
		if normal == accounts.NormalCredit {
			running = running.Add(row.Credit).Sub(row.Debit)
		} else {
			running = running.Add(row.Debit).Sub(row.Credit)
		}
		rows[i].Running = running
	}

	return GeneralLedger{
		Account: account,
		Period:  p,
		Summary: Summarize(normal, opening, totalDebit, totalCredit),
		Rows:    rows,
	}, nil
}

// CashBook builds the cash/bank movement report. Cash accounts are
// debit-normal, so receipts add and payments subtract.
func (s *Service) CashBook(ctx context.Context, p Period, method string) (CashBook, error) {
	openDebit, openCredit, err := s.store.CashSums(ctx, time.Time{}, p.From.Add(-time.Nanosecond), method)
	if err != nil {
		return CashBook{}, err
	}
	opening := openDebit.Sub(openCredit)

	rows, err := s.store.CashRows(ctx, p, method)
	if err != nil {
		return CashBook{}, err
	}

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	running := opening
	for i, row := range rows {
		totalDebit = totalDebit.Add(row.Debit)
		totalCredit = totalCredit.Add(row.Credit)
		running = running.Add(row.Debit).Sub(row.Credit)
		rows[i].Running = running
	}

	return CashBook{
		Period:  p,
		Method:  method,
		Summary: Summarize(accounts.NormalDebit, opening, totalDebit, totalCredit),
		Rows:    rows,
	}, nil
}

// DebtSummary builds the per-party debt report with offset pagination. A
// customer owing money sits debit-normal; a supplier owed money credit-normal.
func (s *Service) DebtSummary(ctx context.Context, partyType ledger.PartyType, p Period, page, perPage int) (DebtSummary, error) {
	if partyType != ledger.PartyCustomer && partyType != ledger.PartySupplier {
		return DebtSummary{}, ErrInvalidParty
	}
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	aggs, total, err := s.store.PartySums(ctx, partyType, p, perPage, (page-1)*perPage)
	if err != nil {
		return DebtSummary{}, err
	}

	normal := accounts.NormalDebit
	if partyType == ledger.PartySupplier {
		normal = accounts.NormalCredit
	}

	data := make([]DebtRow, 0, len(aggs))
	for _, agg := range aggs {
		opening := SignedOpening(normal, agg.OpeningDebit, agg.OpeningCredit)
		data = append(data, DebtRow{
			PartyID:   agg.PartyID,
			PartyName: agg.PartyName,
			Summary:   Summarize(normal, opening, agg.PeriodDebit, agg.PeriodCredit),
		})
	}
	return DebtSummary{Data: data, Total: total}, nil
}

// TopCreditors ranks suppliers by outstanding balance as of the period end.
// The ranking runs over the full unpaged party list.
func (s *Service) TopCreditors(ctx context.Context, p Period, limit int) ([]DebtRow, error) {
	aggs, _, err := s.store.PartySums(ctx, ledger.PartySupplier, p, 0, 0)
	if err != nil {
		return nil, err
	}
	rows := make([]DebtRow, 0, len(aggs))
	for _, agg := range aggs {
		opening := SignedOpening(accounts.NormalCredit, agg.OpeningDebit, agg.OpeningCredit)
		rows = append(rows, DebtRow{
			PartyID:   agg.PartyID,
			PartyName: agg.PartyName,
			Summary:   Summarize(accounts.NormalCredit, opening, agg.PeriodDebit, agg.PeriodCredit),
		})
	}
	return RankCreditors(rows, limit), nil
}
