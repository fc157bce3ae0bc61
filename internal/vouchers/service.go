package vouchers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/backline-erp/backline/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against double posting.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// RebuildEnqueuer schedules a snapshot rebuild after a void or a backdated
// posting. Stale snapshots are resolved by recomputation, not by locking.
type RebuildEnqueuer interface {
	EnqueueSnapshotRebuild(ctx context.Context, productID int64) error
}

// Service coordinates voucher posting and voiding.
type Service struct {
	repo        TxPort
	reader      ReaderPort
	audit       AuditPort
	idempotency IdempotencyPort
	enqueuer    RebuildEnqueuer
	logger      *slog.Logger
}

// ReaderPort abstracts non-transactional voucher reads.
type ReaderPort interface {
	Get(ctx context.Context, id uuid.UUID) (Voucher, error)
	List(ctx context.Context, kind Kind, p shared.Pagination) ([]Voucher, int, error)
}

// NewService builds Service.
func NewService(repo TxPort, reader ReaderPort, audit AuditPort, idem IdempotencyPort, enqueuer RebuildEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, reader: reader, audit: audit, idempotency: idem, enqueuer: enqueuer, logger: logger}
}

// Post validates the voucher and writes it, its ledger entries, and any stock
// snapshot update in one transaction.
func (s *Service) Post(ctx context.Context, v Voucher) (Voucher, error) {
	if err := v.Validate(); err != nil {
		return Voucher{}, err
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Code == "" {
		v.Code = fmt.Sprintf("%s-%d", v.Kind, time.Now().UTC().UnixNano())
	}
	v.Status = StatusPosted

	key := fmt.Sprintf("voucher:%s:%s", v.Kind, v.Code)
	insertedKey := false
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "vouchers"); err != nil {
			return Voucher{}, err
		}
		insertedKey = true
	}

	backdated := false
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxOps) error {
		if err := tx.InsertVoucher(ctx, v); err != nil {
			return err
		}
		entries := v.Entries()
		for _, e := range entries {
			if _, err := tx.RecordEntry(ctx, e); err != nil {
				return err
			}
		}
		if mv := v.Movement(); mv != "" {
			snap, err := tx.GetSnapshotAtDate(ctx, v.ProductID, v.Date)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.Movement != "" {
					snap = snap.ApplyEntry(e)
				}
			}
			snap.ProductID = v.ProductID
			snap.Date = dayOf(v.Date)
			if err := tx.UpsertSnapshot(ctx, snap); err != nil {
				return err
			}
			// A posting dated before existing snapshots invalidates them;
			// they get recomputed from ledger history after commit.
			backdated, err = tx.HasSnapshotAfter(ctx, v.ProductID, snap.Date)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Voucher{}, err
	}

	if backdated && s.enqueuer != nil {
		if err := s.enqueuer.EnqueueSnapshotRebuild(ctx, v.ProductID); err != nil && s.logger != nil {
			s.logger.Warn("enqueue snapshot rebuild", slog.Int64("product_id", v.ProductID), slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  v.CreatedBy,
			Action:   fmt.Sprintf("voucher:%s", v.Kind),
			Entity:   "voucher",
			EntityID: v.ID.String(),
			Meta: map[string]any{
				"code":   v.Code,
				"amount": v.Amount.String(),
				"party":  fmt.Sprintf("%s:%d", v.PartyType, v.PartyID),
			},
		})
	}
	return v, nil
}

// Void removes the voucher and exactly its own ledger entries, atomically.
// A count mismatch between found and deleted entries aborts the whole thing.
func (s *Service) Void(ctx context.Context, id uuid.UUID, actorID int64) error {
	var productID int64

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxOps) error {
		v, err := tx.GetVoucherForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if v.Status == StatusVoided {
			return ErrAlreadyVoided
		}
		productID = v.ProductID

		expected, err := tx.CountEntriesByReference(ctx, RefType, id)
		if err != nil {
			return err
		}
		deleted, err := tx.DeleteEntriesByReference(ctx, RefType, id)
		if err != nil {
			return err
		}
		if deleted != expected {
			return fmt.Errorf("%w: voucher %s expected %d entries, deleted %d",
				shared.ErrConsistency, id, expected, deleted)
		}
		return tx.MarkVoided(ctx, id)
	})
	if err != nil {
		return err
	}

	if productID != 0 && s.enqueuer != nil {
		if err := s.enqueuer.EnqueueSnapshotRebuild(ctx, productID); err != nil && s.logger != nil {
			s.logger.Warn("enqueue snapshot rebuild", slog.Int64("product_id", productID), slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "voucher:void",
			Entity:   "voucher",
			EntityID: id.String(),
			Meta:     map[string]any{"product_id": productID},
		})
	}
	return nil
}

// Get fetches one voucher.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Voucher, error) {
	return s.reader.Get(ctx, id)
}

// List pages vouchers.
func (s *Service) List(ctx context.Context, kind Kind, p shared.Pagination) ([]Voucher, int, error) {
	return s.reader.List(ctx, kind, p)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
