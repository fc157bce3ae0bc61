package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/backline-erp/backline/internal/balances"
	"github.com/backline-erp/backline/internal/shared"
)

// ProductLister enumerates products that have ledger history.
type ProductLister interface {
	ProductIDs(ctx context.Context) ([]int64, error)
}

// LedgerVerifyJob replays the ledger per product and flags snapshot drift.
// Drift is reported, not repaired; repair goes through a rebuild task.
type LedgerVerifyJob struct {
	Balances *balances.Service
	Products ProductLister
	Logger   *slog.Logger
}

// NewLedgerVerifyJob wires dependencies for the verify handler.
func NewLedgerVerifyJob(balancesSvc *balances.Service, products ProductLister, logger *slog.Logger) *LedgerVerifyJob {
	return &LedgerVerifyJob{Balances: balancesSvc, Products: products, Logger: logger}
}

// Handle processes ledger verify tasks.
func (j *LedgerVerifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Balances == nil || j.Products == nil {
		return errors.New("ledger verify: handler not configured")
	}
	var payload LedgerVerifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	date := time.Now().UTC()
	if payload.Date != "" {
		parsed, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return asynq.SkipRetry
		}
		date = parsed
	}
	tolerance := decimal.Zero
	if payload.Tolerance != "" {
		parsed, err := decimal.NewFromString(payload.Tolerance)
		if err != nil || parsed.IsNegative() {
			return asynq.SkipRetry
		}
		tolerance = parsed
	}

	logger := j.logger().With(slog.String("date", date.Format("2006-01-02")))
	ids, err := j.Products.ProductIDs(ctx)
	if err != nil {
		logger.Error("list products", slog.Any("error", err))
		return err
	}

	drifted := 0
	for _, id := range ids {
		if _, err := j.Balances.Verify(ctx, id, date, tolerance); err != nil {
			if errors.Is(err, shared.ErrConsistency) {
				drifted++
				logger.Warn("snapshot drift detected", slog.Int64("product_id", id), slog.Any("error", err))
				continue
			}
			logger.Error("verify product", slog.Int64("product_id", id), slog.Any("error", err))
			return err
		}
	}
	logger.Info("ledger verify completed", slog.Int("products", len(ids)), slog.Int("drifted", drifted))
	return nil
}

func (j *LedgerVerifyJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerVerify))
	}
	return slog.Default().With(slog.String("job", TaskLedgerVerify))
}
