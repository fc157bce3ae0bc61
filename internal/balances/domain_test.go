package balances

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/backline-erp/backline/internal/ledger"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestZeroSnapshot(t *testing.T) {
	s := Zero(7, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.True(t, s.Quantity.IsZero())
	require.True(t, s.Value.IsZero())
	require.True(t, s.AvgCost.IsZero())
}

func TestApplyWeightedAverage(t *testing.T) {
	s := Zero(1, time.Time{})

	s = s.Apply(d(10), d(1000000))
	require.True(t, s.AvgCost.Equal(d(100000)), "avg=%s", s.AvgCost)

	s = s.Apply(d(5), d(600000))
	require.True(t, s.Quantity.Equal(d(15)))
	// (1000000 + 600000) / 15
	require.InDelta(t, 106666.6667, s.AvgCost.InexactFloat64(), 0.001)
}

func TestApplyZeroQuantityGuard(t *testing.T) {
	s := Zero(1, time.Time{})
	s = s.Apply(d(10), d(500))
	s = s.Apply(d(-10), d(-500))
	require.True(t, s.Quantity.IsZero())
	require.True(t, s.AvgCost.IsZero())
	require.True(t, s.Value.IsZero())
}

func TestApplyEntryDirections(t *testing.T) {
	s := Zero(1, time.Time{})
	in := ledger.Entry{Movement: ledger.MovementIn, Quantity: d(10), UnitCost: d(100)}
	s = s.ApplyEntry(in)
	require.True(t, s.Quantity.Equal(d(10)))
	require.True(t, s.Value.Equal(d(1000)))

	out := ledger.Entry{Movement: ledger.MovementOut, Quantity: d(4)}
	s = s.ApplyEntry(out)
	require.True(t, s.Quantity.Equal(d(6)))
	// Outbound leaves at the running average, so the average is unchanged.
	require.True(t, s.AvgCost.Equal(d(100)))
	require.True(t, s.Value.Equal(d(600)))

	// Entries without a movement are purely financial and leave stock alone.
	s2 := s.ApplyEntry(ledger.Entry{Debit: d(50)})
	require.True(t, s2.Quantity.Equal(s.Quantity))
}

func TestReplayDeterministic(t *testing.T) {
	entries := []ledger.Entry{
		{Movement: ledger.MovementIn, Quantity: d(10), UnitCost: d(100)},
		{Movement: ledger.MovementIn, Quantity: d(5), UnitCost: d(120)},
		{Movement: ledger.MovementOut, Quantity: d(8)},
	}
	a := Replay(Zero(1, time.Time{}), entries)
	b := Replay(Zero(1, time.Time{}), entries)
	require.True(t, a.Quantity.Equal(b.Quantity))
	require.True(t, a.Value.Equal(b.Value))
	require.True(t, a.AvgCost.Equal(b.AvgCost))
	require.True(t, a.Quantity.Equal(d(7)))
}
