package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcile replays cash and partner trails and compares them with stored totals.
	TaskReconcile = "ledger:reconcile"
	// TaskIdempotencyCleanup drops idempotency keys past their retention.
	TaskIdempotencyCleanup = "ledger:idempotency_cleanup"
)

// ReconcilePayload selects the unit to reconcile. An empty unit means all.
type ReconcilePayload struct {
	Unit        string    `json:"unit,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// CleanupPayload overrides the retention configured on the worker.
type CleanupPayload struct {
	Retention time.Duration `json:"retention,omitempty"`
}

// NewReconcileTask constructs a reconcile task.
func NewReconcileTask(unit string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReconcilePayload{Unit: unit, RequestedAt: at.UTC()})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReconcile, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewIdempotencyCleanupTask constructs a cleanup task. Zero retention uses the worker default.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(CleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault), asynq.MaxRetry(1)), nil
}
