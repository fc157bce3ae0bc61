package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/backline-erp/backline/internal/accounts"
	"github.com/backline-erp/backline/internal/shared"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestNewPeriodRejectsInvertedRange(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewPeriod(from, to)
	require.ErrorIs(t, err, shared.ErrValidation)

	p, err := NewPeriod(to, from)
	require.NoError(t, err)
	require.Equal(t, to, p.From)
}

func TestMonthPeriodBounds(t *testing.T) {
	p, err := MonthPeriod(2024, time.February)
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), p.From)
	require.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), p.To)

	_, err = MonthPeriod(2024, time.Month(13))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSummarizeAssetScenario(t *testing.T) {
	// ASSET account, opening 0, debit 100 then credit 40 => closing 60.
	sum := Summarize(accounts.NormalDebit, decimal.Zero, d(100), d(40))
	require.True(t, sum.Closing.Equal(d(60)), "closing=%s", sum.Closing)
}

func TestSummarizeCreditNormal(t *testing.T) {
	sum := Summarize(accounts.NormalCredit, d(200), d(50), d(120))
	// 200 + 120 - 50
	require.True(t, sum.Closing.Equal(d(270)))
}

func TestSignedOpening(t *testing.T) {
	require.True(t, SignedOpening(accounts.NormalDebit, d(300), d(100)).Equal(d(200)))
	require.True(t, SignedOpening(accounts.NormalCredit, d(300), d(100)).Equal(d(-200)))
}

func TestRankCreditorsDeterministic(t *testing.T) {
	rows := []DebtRow{
		{PartyID: 1, PartyName: "a", Summary: PeriodSummary{Closing: d(50)}},
		{PartyID: 2, PartyName: "b", Summary: PeriodSummary{Closing: d(200)}},
		{PartyID: 3, PartyName: "c", Summary: PeriodSummary{Closing: d(0)}},
		{PartyID: 4, PartyName: "d", Summary: PeriodSummary{Closing: d(-30)}},
		{PartyID: 5, PartyName: "e", Summary: PeriodSummary{Closing: d(200)}},
		{PartyID: 6, PartyName: "f", Summary: PeriodSummary{Closing: d(120)}},
	}

	first := RankCreditors(rows, 3)
	require.Len(t, first, 3)
	// Ties keep insertion order: party 2 before party 5.
	require.Equal(t, int64(2), first[0].PartyID)
	require.Equal(t, int64(5), first[1].PartyID)
	require.Equal(t, int64(6), first[2].PartyID)

	for i := 0; i < 10; i++ {
		again := RankCreditors(rows, 3)
		require.Equal(t, first, again)
	}
}

func TestRankCreditorsFiltersNonPositive(t *testing.T) {
	rows := []DebtRow{
		{PartyID: 1, Summary: PeriodSummary{Closing: d(0)}},
		{PartyID: 2, Summary: PeriodSummary{Closing: d(-5)}},
	}
	require.Empty(t, RankCreditors(rows, 5))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1,234,567.89", FormatAmount(d(1234567.89)))
	require.Equal(t, "0.00", FormatAmount(decimal.Zero))
}
