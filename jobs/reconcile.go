package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/newdim001/biz-pro/internal/ledger"
	"github.com/newdim001/biz-pro/internal/shared"
)

// Reconciler is the ledger surface the reconcile job drives.
type Reconciler interface {
	Reconcile(ctx context.Context, unit string) (ledger.Reconciliation, error)
	ReconcileAll(ctx context.Context) ([]ledger.Reconciliation, error)
}

// Recorder receives job outcomes.
type Recorder interface {
	ObserveJob(task string, err error)
	SetDiscrepancies(unit string, count int)
}

// ReconcileJob checks stored totals against their trails.
type ReconcileJob struct {
	Ledger  Reconciler
	Metrics Recorder
	Logger  *slog.Logger
}

// Handle processes TaskReconcile tasks.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Ledger == nil {
		return errors.New("reconcile: handler not configured")
	}
	defer func() { j.observe(err) }()
	var payload ReconcilePayload
	if decodeErr := json.Unmarshal(t.Payload(), &payload); decodeErr != nil {
		return errors.Join(decodeErr, asynq.SkipRetry)
	}

	var results []ledger.Reconciliation
	if payload.Unit != "" {
		rec, err := j.Ledger.Reconcile(ctx, payload.Unit)
		if errors.Is(err, shared.ErrNotFound) {
			return errors.Join(err, asynq.SkipRetry)
		}
		if err != nil {
			return err
		}
		results = append(results, rec)
	} else {
		results, err = j.Ledger.ReconcileAll(ctx)
		if err != nil {
			return err
		}
	}

	logger := j.logger()
	total := 0
	for _, rec := range results {
		total += len(rec.Discrepancies)
		if j.Metrics != nil {
			j.Metrics.SetDiscrepancies(rec.Unit, len(rec.Discrepancies))
		}
	}
	logger.Info("reconciliation finished", slog.Int("units", len(results)), slog.Int("discrepancies", total))
	return nil
}

func (j *ReconcileJob) observe(err error) {
	if j.Metrics != nil {
		j.Metrics.ObserveJob(TaskReconcile, err)
	}
}

func (j *ReconcileJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger.With(slog.String("task", TaskReconcile))
}
