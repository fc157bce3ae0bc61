package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/backline-erp/backline/internal/balances"
)

// SnapshotRebuildJob recomputes stock snapshots from ledger history.
type SnapshotRebuildJob struct {
	Balances *balances.Service
	Logger   *slog.Logger
}

// NewSnapshotRebuildJob wires dependencies for the rebuild handler.
func NewSnapshotRebuildJob(balancesSvc *balances.Service, logger *slog.Logger) *SnapshotRebuildJob {
	return &SnapshotRebuildJob{Balances: balancesSvc, Logger: logger}
}

// Handle processes snapshot rebuild tasks.
func (j *SnapshotRebuildJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Balances == nil {
		return errors.New("snapshot rebuild: handler not configured")
	}
	var payload SnapshotRebuildPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger().With(slog.Int64("product_id", payload.ProductID))
	start := time.Now()

	var err error
	if payload.ProductID > 0 {
		err = j.Balances.Rebuild(ctx, payload.ProductID)
	} else {
		err = j.Balances.RebuildAll(ctx)
	}
	if err != nil {
		logger.Error("snapshot rebuild", slog.Any("error", err))
		return err
	}
	logger.Info("snapshot rebuild completed", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *SnapshotRebuildJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskSnapshotRebuild))
	}
	return slog.Default().With(slog.String("job", TaskSnapshotRebuild))
}
