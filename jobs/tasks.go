package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotRebuild recomputes stock snapshots from ledger history.
	TaskSnapshotRebuild = "ledger:rebuild_snapshots"
	// TaskLedgerVerify replays the ledger and flags snapshot drift.
	TaskLedgerVerify = "ledger:verify"
)

// SnapshotRebuildPayload selects which product to rebuild. ProductID zero
// means every product with ledger history.
type SnapshotRebuildPayload struct {
	ProductID int64 `json:"product_id"`
}

// NewSnapshotRebuildTask constructs an Asynq task.
func NewSnapshotRebuildTask(productID int64) (*asynq.Task, error) {
	data, err := json.Marshal(SnapshotRebuildPayload{ProductID: productID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotRebuild, data), nil
}

// LedgerVerifyPayload bounds the verification run.
type LedgerVerifyPayload struct {
	Date      string `json:"date"`
	Tolerance string `json:"tolerance"`
}

// NewLedgerVerifyTask constructs an Asynq task. Date is YYYY-MM-DD; an empty
// date means today.
func NewLedgerVerifyTask(date, tolerance string) (*asynq.Task, error) {
	data, err := json.Marshal(LedgerVerifyPayload{Date: date, Tolerance: tolerance})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerVerify, data), nil
}
