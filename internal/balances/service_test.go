package balances

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/shared"
)

type memoryStore struct {
	snapshots map[string]Snapshot
}

func newMemoryStore() *memoryStore {
	return &memoryStore{snapshots: make(map[string]Snapshot)}
}

func snapKey(productID int64, date time.Time) string {
	return fmt.Sprintf("%d:%s", productID, date.Format("2006-01-02"))
}

func (m *memoryStore) GetAtDate(ctx context.Context, productID int64, date time.Time) (Snapshot, error) {
	best := Zero(productID, date)
	found := false
	for _, s := range m.snapshots {
		if s.ProductID == productID && !s.Date.After(date) {
			if !found || s.Date.After(best.Date) {
				best = s
				found = true
			}
		}
	}
	return best, nil
}

func (m *memoryStore) Upsert(ctx context.Context, s Snapshot) error {
	m.snapshots[snapKey(s.ProductID, s.Date)] = s
	return nil
}

func (m *memoryStore) DeleteForProduct(ctx context.Context, productID int64) error {
	for k, s := range m.snapshots {
		if s.ProductID == productID {
			delete(m.snapshots, k)
		}
	}
	return nil
}

type memoryLedger struct {
	entries []ledger.Entry
}

func (m *memoryLedger) ListByProductUpTo(ctx context.Context, productID int64, cutoff time.Time) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range m.entries {
		if e.ProductID == productID && !e.Date.After(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryLedger) ProductIDs(ctx context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, e := range m.entries {
		if !seen[e.ProductID] {
			seen[e.ProductID] = true
			ids = append(ids, e.ProductID)
		}
	}
	return ids, nil
}

func day(dd int) time.Time {
	return time.Date(2024, 1, dd, 0, 0, 0, 0, time.UTC)
}

func TestGetAtDateDefaultsToZero(t *testing.T) {
	svc := NewService(newMemoryStore(), &memoryLedger{}, nil)
	s, err := svc.GetAtDate(context.Background(), 42, day(10))
	require.NoError(t, err)
	require.True(t, s.Quantity.IsZero())
	require.True(t, s.Value.IsZero())
	require.True(t, s.AvgCost.IsZero())
}

func TestRebuildThenVerifyNoDrift(t *testing.T) {
	led := &memoryLedger{entries: []ledger.Entry{
		{ProductID: 1, Date: day(5), Movement: ledger.MovementIn, Quantity: d(10), UnitCost: d(100)},
		{ProductID: 1, Date: day(5), Movement: ledger.MovementIn, Quantity: d(2), UnitCost: d(130)},
		{ProductID: 1, Date: day(20), Movement: ledger.MovementOut, Quantity: d(4)},
	}}
	store := newMemoryStore()
	svc := NewService(store, led, nil)

	require.NoError(t, svc.Rebuild(context.Background(), 1))

	// One snapshot per posting date.
	require.Len(t, store.snapshots, 2)

	res, err := svc.Verify(context.Background(), 1, day(20), decimal.NewFromFloat(0.0001))
	require.NoError(t, err)
	require.True(t, res.QtyDrift.IsZero())
	require.True(t, res.ValueDrift.IsZero())
}

func TestVerifyCleanOnQuietDate(t *testing.T) {
	led := &memoryLedger{entries: []ledger.Entry{
		{ProductID: 1, Date: day(5), Movement: ledger.MovementIn, Quantity: d(10), UnitCost: d(100)},
	}}
	store := newMemoryStore()
	svc := NewService(store, led, nil)
	require.NoError(t, svc.Rebuild(context.Background(), 1))

	// No snapshot row exists for the 6th; the one from the 5th still holds.
	res, err := svc.Verify(context.Background(), 1, day(6), decimal.NewFromFloat(0.0001))
	require.NoError(t, err)
	require.True(t, res.QtyDrift.IsZero())
	require.True(t, res.ValueDrift.IsZero())
}

func TestRebuildIdempotent(t *testing.T) {
	led := &memoryLedger{entries: []ledger.Entry{
		{ProductID: 1, Date: day(3), Movement: ledger.MovementIn, Quantity: d(5), UnitCost: d(10)},
	}}
	store := newMemoryStore()
	svc := NewService(store, led, nil)

	require.NoError(t, svc.Rebuild(context.Background(), 1))
	first := store.snapshots[snapKey(1, day(3))]
	require.NoError(t, svc.Rebuild(context.Background(), 1))
	second := store.snapshots[snapKey(1, day(3))]

	require.True(t, first.Quantity.Equal(second.Quantity))
	require.True(t, first.Value.Equal(second.Value))
	require.True(t, first.AvgCost.Equal(second.AvgCost))
	require.Len(t, store.snapshots, 1)
}

func TestVerifyReportsDrift(t *testing.T) {
	led := &memoryLedger{entries: []ledger.Entry{
		{ProductID: 1, Date: day(5), Movement: ledger.MovementIn, Quantity: d(10), UnitCost: d(100)},
	}}
	store := newMemoryStore()
	// A tampered snapshot that contradicts the ledger.
	require.NoError(t, store.Upsert(context.Background(), Snapshot{
		ProductID: 1, Date: day(5), Quantity: d(99), Value: d(9900), AvgCost: d(100),
	}))
	svc := NewService(store, led, nil)

	_, err := svc.Verify(context.Background(), 1, day(5), decimal.NewFromFloat(0.0001))
	require.ErrorIs(t, err, shared.ErrConsistency)
}

func TestRebuildAll(t *testing.T) {
	led := &memoryLedger{entries: []ledger.Entry{
		{ProductID: 1, Date: day(2), Movement: ledger.MovementIn, Quantity: d(1), UnitCost: d(5)},
		{ProductID: 2, Date: day(4), Movement: ledger.MovementIn, Quantity: d(2), UnitCost: d(7)},
	}}
	store := newMemoryStore()
	svc := NewService(store, led, nil)
	require.NoError(t, svc.RebuildAll(context.Background()))
	require.Len(t, store.snapshots, 2)
}
