package balances

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/ledger"
	"github.com/backline-erp/backline/internal/shared"
)

// StorePort abstracts snapshot persistence for the service.
type StorePort interface {
	GetAtDate(ctx context.Context, productID int64, date time.Time) (Snapshot, error)
	Upsert(ctx context.Context, s Snapshot) error
	DeleteForProduct(ctx context.Context, productID int64) error
}

// LedgerPort abstracts ledger reads used for replay.
type LedgerPort interface {
	ListByProductUpTo(ctx context.Context, productID int64, cutoff time.Time) ([]ledger.Entry, error)
	ProductIDs(ctx context.Context) ([]int64, error)
}

// Service recomputes and verifies snapshots against ledger history. The
// ledger is the source of truth; snapshots are a cache the service may
// rebuild at any time.
type Service struct {
	store  StorePort
	ledger LedgerPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(store StorePort, ledgerRepo LedgerPort, logger *slog.Logger) *Service {
	return &Service{store: store, ledger: ledgerRepo, logger: logger}
}

// GetAtDate reads the snapshot effective at the date, zero-defaulting.
func (s *Service) GetAtDate(ctx context.Context, productID int64, date time.Time) (Snapshot, error) {
	return s.store.GetAtDate(ctx, productID, date)
}

// replayCutoff bounds rebuilds; entries are never posted this far out.
var replayCutoff = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Rebuild recomputes every snapshot of a product from its ledger history,
// one snapshot per posting date.
func (s *Service) Rebuild(ctx context.Context, productID int64) error {
	entries, err := s.ledger.ListByProductUpTo(ctx, productID, replayCutoff)
	if err != nil {
		return err
	}
	if err := s.store.DeleteForProduct(ctx, productID); err != nil {
		return err
	}

	running := Zero(productID, time.Time{})
	for i, e := range entries {
		running = running.ApplyEntry(e)
		last := i+1 == len(entries)
		if !last && sameDay(entries[i+1].Date, e.Date) {
			continue
		}
		snap := running
		snap.Date = dayOf(e.Date)
		if err := s.store.Upsert(ctx, snap); err != nil {
			return err
		}
	}
	if s.logger != nil {
		s.logger.Info("snapshots rebuilt", slog.Int64("product_id", productID), slog.Int("entries", len(entries)))
	}
	return nil
}

// RebuildAll rebuilds snapshots for every product with ledger history.
func (s *Service) RebuildAll(ctx context.Context) error {
	ids, err := s.ledger.ProductIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.Rebuild(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// VerifyResult reports the drift between a stored snapshot and its replay.
type VerifyResult struct {
	ProductID  int64
	Date       time.Time
	Stored     Snapshot
	Replayed   Snapshot
	QtyDrift   decimal.Decimal
	ValueDrift decimal.Decimal
}

// Verify replays the ledger up to the date and compares against the latest
// stored snapshot on or before it. Snapshots only exist on posting dates, so
// comparing against the exact date would flag every quiet day as drifted.
// Drift beyond tolerance is a consistency violation.
func (s *Service) Verify(ctx context.Context, productID int64, date time.Time, tolerance decimal.Decimal) (VerifyResult, error) {
	stored, err := s.store.GetAtDate(ctx, productID, date)
	if err != nil {
		return VerifyResult{}, err
	}
	entries, err := s.ledger.ListByProductUpTo(ctx, productID, date)
	if err != nil {
		return VerifyResult{}, err
	}
	replayed := Replay(Zero(productID, date), entries)

	qtyDrift, valueDrift := Drift(stored, replayed)
	res := VerifyResult{
		ProductID:  productID,
		Date:       date,
		Stored:     stored,
		Replayed:   replayed,
		QtyDrift:   qtyDrift,
		ValueDrift: valueDrift,
	}
	if qtyDrift.GreaterThan(tolerance) || valueDrift.GreaterThan(tolerance) {
		return res, fmt.Errorf("%w: product %d at %s drift qty=%s value=%s",
			shared.ErrConsistency, productID, date.Format("2006-01-02"), qtyDrift, valueDrift)
	}
	return res, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
