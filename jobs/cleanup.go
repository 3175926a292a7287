package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// Purger deletes idempotency keys claimed before a cutoff.
type Purger interface {
	PurgeIdempotencyKeys(ctx context.Context, olderThan time.Time) (int64, error)
}

// CleanupJob bounds the growth of the idempotency table.
type CleanupJob struct {
	Store     Purger
	Retention time.Duration
	Metrics   Recorder
	Logger    *slog.Logger
	clock     func() time.Time
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	defer func() {
		if j.Metrics != nil {
			j.Metrics.ObserveJob(TaskIdempotencyCleanup, err)
		}
	}()
	var payload CleanupPayload
	if len(t.Payload()) > 0 {
		if decodeErr := json.Unmarshal(t.Payload(), &payload); decodeErr != nil {
			return errors.Join(decodeErr, asynq.SkipRetry)
		}
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.Retention
	}
	if retention <= 0 {
		return errors.Join(errors.New("idempotency cleanup: retention must be positive"), asynq.SkipRetry)
	}

	cutoff := j.now().Add(-retention)
	purged, err := j.Store.PurgeIdempotencyKeys(ctx, cutoff)
	if err != nil {
		return err
	}
	if j.Logger != nil {
		j.Logger.Info("idempotency keys purged", slog.Int64("purged", purged), slog.Time("cutoff", cutoff))
	}
	return nil
}

func (j *CleanupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
