package vouchers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/backline-erp/backline/internal/balances"
	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/shared"
)

// memoryRepo implements TxPort and ReaderPort with commit/rollback semantics:
// writes land in a staging copy and only replace the committed state when the
// callback succeeds.
type memoryRepo struct {
	vouchers  map[uuid.UUID]Voucher
	entries   []ledger.Entry
	snapshots map[string]balances.Snapshot
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		vouchers:  make(map[uuid.UUID]Voucher),
		snapshots: make(map[string]balances.Snapshot),
	}
}

type memoryTx struct {
	*memoryRepo
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxOps) error) error {
	staged := &memoryRepo{
		vouchers:  make(map[uuid.UUID]Voucher, len(m.vouchers)),
		entries:   append([]ledger.Entry(nil), m.entries...),
		snapshots: make(map[string]balances.Snapshot, len(m.snapshots)),
		nextID:    m.nextID,
	}
	for k, v := range m.vouchers {
		staged.vouchers[k] = v
	}
	for k, v := range m.snapshots {
		staged.snapshots[k] = v
	}
	if err := fn(ctx, &memoryTx{staged}); err != nil {
		return err
	}
	*m = *staged
	return nil
}

func (t *memoryTx) InsertVoucher(ctx context.Context, v Voucher) error {
	t.vouchers[v.ID] = v
	return nil
}

func (t *memoryTx) GetVoucherForUpdate(ctx context.Context, id uuid.UUID) (Voucher, error) {
	v, ok := t.vouchers[id]
	if !ok {
		return Voucher{}, shared.ErrNotFound
	}
	return v, nil
}

func (t *memoryTx) MarkVoided(ctx context.Context, id uuid.UUID) error {
	v := t.vouchers[id]
	v.Status = StatusVoided
	now := time.Now()
	v.VoidedAt = &now
	t.vouchers[id] = v
	return nil
}

func (t *memoryTx) RecordEntry(ctx context.Context, e ledger.Entry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	t.nextID++
	e.ID = t.nextID
	t.entries = append(t.entries, e)
	return e.ID, nil
}

func (t *memoryTx) CountEntriesByReference(ctx context.Context, refType string, refID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range t.entries {
		if e.RefType == refType && e.RefID == refID && e.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) DeleteEntriesByReference(ctx context.Context, refType string, refID uuid.UUID) (int64, error) {
	now := time.Now()
	var n int64
	for i, e := range t.entries {
		if e.RefType == refType && e.RefID == refID && e.DeletedAt == nil {
			t.entries[i].DeletedAt = &now
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) GetSnapshotAtDate(ctx context.Context, productID int64, date time.Time) (balances.Snapshot, error) {
	best := balances.Zero(productID, date)
	found := false
	for _, s := range t.snapshots {
		if s.ProductID == productID && !s.Date.After(date) {
			if !found || s.Date.After(best.Date) {
				best = s
				found = true
			}
		}
	}
	return best, nil
}

func (t *memoryTx) HasSnapshotAfter(ctx context.Context, productID int64, date time.Time) (bool, error) {
	for _, s := range t.snapshots {
		if s.ProductID == productID && s.Date.After(date) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) UpsertSnapshot(ctx context.Context, s balances.Snapshot) error {
	t.snapshots[fmt.Sprintf("%d:%s", s.ProductID, s.Date.Format("2006-01-02"))] = s
	return nil
}

func (m *memoryRepo) Get(ctx context.Context, id uuid.UUID) (Voucher, error) {
	v, ok := m.vouchers[id]
	if !ok {
		return Voucher{}, shared.ErrNotFound
	}
	return v, nil
}

func (m *memoryRepo) List(ctx context.Context, kind Kind, p shared.Pagination) ([]Voucher, int, error) {
	var out []Voucher
	for _, v := range m.vouchers {
		if kind == "" || v.Kind == kind {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

type memoryIdem struct {
	keys map[string]bool
}

func (m *memoryIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdem) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type memoryEnqueuer struct {
	products []int64
}

func (m *memoryEnqueuer) EnqueueSnapshotRebuild(ctx context.Context, productID int64) error {
	m.products = append(m.products, productID)
	return nil
}

func dm(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func receipt() Voucher {
	return Voucher{
		Code:          "RC-001",
		Kind:          KindReceipt,
		PartyType:     ledger.PartyCustomer,
		PartyID:       9,
		CashAccountID: 1,
		DebtAccountID: 2,
		Amount:        dm(500),
		Date:          time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Method:        "CASH",
		Quantity:      decimal.Zero,
		UnitCost:      decimal.Zero,
	}
}

func TestPostWritesBalancedEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, repo, nil, &memoryIdem{}, nil, nil)

	v, err := svc.Post(context.Background(), receipt())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, v.ID)
	require.Len(t, repo.entries, 2)

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for _, e := range repo.entries {
		totalDebit = totalDebit.Add(e.Debit)
		totalCredit = totalCredit.Add(e.Credit)
		require.Equal(t, RefType, e.RefType)
		require.Equal(t, v.ID, e.RefID)
	}
	require.True(t, totalDebit.Equal(totalCredit))
	require.True(t, totalDebit.Equal(dm(500)))
}

func TestPostValidationRejectsBeforeWrite(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, repo, nil, &memoryIdem{}, nil, nil)

	v := receipt()
	v.Amount = dm(-5)
	_, err := svc.Post(context.Background(), v)
	require.ErrorIs(t, err, ErrInvalidAmount)
	require.Empty(t, repo.vouchers)
	require.Empty(t, repo.entries)
}

func TestPostStockSectionUpdatesSnapshot(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, repo, nil, &memoryIdem{}, nil, nil)

	v := receipt()
	v.Kind = KindPayment
	v.PartyType = ledger.PartySupplier
	v.Code = "PM-001"
	v.Amount = dm(1000)
	v.ProductID = 77
	v.Quantity = dm(10)
	v.UnitCost = dm(100)

	_, err := svc.Post(context.Background(), v)
	require.NoError(t, err)

	snap, err := (&memoryTx{repo}).GetSnapshotAtDate(context.Background(), 77, v.Date)
	require.NoError(t, err)
	require.True(t, snap.Quantity.Equal(dm(10)))
	require.True(t, snap.AvgCost.Equal(dm(100)))
}

func TestBackdatedStockPostingEnqueuesRebuild(t *testing.T) {
	repo := newMemoryRepo()
	enq := &memoryEnqueuer{}
	svc := NewService(repo, repo, nil, &memoryIdem{}, enq, nil)

	latest := receipt()
	latest.Kind = KindPayment
	latest.PartyType = ledger.PartySupplier
	latest.Code = "PM-010"
	latest.Amount = dm(1000)
	latest.ProductID = 8
	latest.Quantity = dm(10)
	latest.UnitCost = dm(100)
	latest.Date = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.Post(context.Background(), latest)
	require.NoError(t, err)
	// Posting at the newest date leaves no later snapshot to invalidate.
	require.Empty(t, enq.products)

	earlier := latest
	earlier.Code = "PM-005"
	earlier.Date = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	_, err = svc.Post(context.Background(), earlier)
	require.NoError(t, err)
	require.Equal(t, []int64{8}, enq.products)
}

func TestPostIdempotency(t *testing.T) {
	repo := newMemoryRepo()
	idem := &memoryIdem{}
	svc := NewService(repo, repo, nil, idem, nil, nil)

	_, err := svc.Post(context.Background(), receipt())
	require.NoError(t, err)
	_, err = svc.Post(context.Background(), receipt())
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.Len(t, repo.entries, 2)
}

func TestVoidRemovesExactlyOwnEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, repo, nil, &memoryIdem{}, nil, nil)

	first, err := svc.Post(context.Background(), receipt())
	require.NoError(t, err)

	other := receipt()
	other.Code = "RC-002"
	second, err := svc.Post(context.Background(), other)
	require.NoError(t, err)

	require.NoError(t, svc.Void(context.Background(), first.ID, 1))

	var live, deleted int
	for _, e := range repo.entries {
		switch {
		case e.DeletedAt != nil:
			deleted++
			require.Equal(t, first.ID, e.RefID)
		default:
			live++
			require.Equal(t, second.ID, e.RefID)
		}
	}
	require.Equal(t, 2, deleted)
	require.Equal(t, 2, live)
	require.Equal(t, StatusVoided, repo.vouchers[first.ID].Status)
	require.Equal(t, StatusPosted, repo.vouchers[second.ID].Status)
}

func TestVoidTwiceFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, repo, nil, &memoryIdem{}, nil, nil)

	v, err := svc.Post(context.Background(), receipt())
	require.NoError(t, err)
	require.NoError(t, svc.Void(context.Background(), v.ID, 1))

	err = svc.Void(context.Background(), v.ID, 1)
	require.ErrorIs(t, err, ErrAlreadyVoided)
}

func TestVoidEnqueuesRebuildForStockVouchers(t *testing.T) {
	repo := newMemoryRepo()
	enq := &memoryEnqueuer{}
	svc := NewService(repo, repo, nil, &memoryIdem{}, enq, nil)

	v := receipt()
	v.Kind = KindPayment
	v.PartyType = ledger.PartySupplier
	v.ProductID = 5
	v.Quantity = dm(3)
	v.UnitCost = dm(10)
	posted, err := svc.Post(context.Background(), v)
	require.NoError(t, err)

	require.NoError(t, svc.Void(context.Background(), posted.ID, 1))
	require.Equal(t, []int64{5}, enq.products)
}
