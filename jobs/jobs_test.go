package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/newdim001/biz-pro/internal/cash"
	"github.com/newdim001/biz-pro/internal/ledger"
	"github.com/newdim001/biz-pro/internal/store"
	"github.com/newdim001/biz-pro/internal/store/memory"
)

type recorder struct {
	jobs          map[string][]error
	discrepancies map[string]int
}

func newRecorder() *recorder {
	return &recorder{jobs: map[string][]error{}, discrepancies: map[string]int{}}
}

func (r *recorder) ObserveJob(task string, err error) { r.jobs[task] = append(r.jobs[task], err) }
func (r *recorder) SetDiscrepancies(unit string, count int) {
	r.discrepancies[unit] = count
}

func newLedger(t *testing.T) (*ledger.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := ledger.NewService(st, nil, nil, ledger.DefaultConfig())
	_, err := svc.Seed(context.Background(), ledger.DefaultSeed())
	require.NoError(t, err)
	return svc, st
}

func TestReconcileTaskPayload(t *testing.T) {
	at := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	task, err := NewReconcileTask("Unit A", at)
	require.NoError(t, err)
	require.Equal(t, TaskReconcile, task.Type())

	var payload ReconcilePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "Unit A", payload.Unit)
	require.True(t, payload.RequestedAt.Equal(at))
}

func TestReconcileJobPublishesDiscrepancies(t *testing.T) {
	svc, st := newLedger(t)
	ctx := context.Background()
	err := st.WithTx(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.SaveBalance(ctx, cash.Balance{Unit: "Unit B", Balance: decimal.NewFromInt(1)})
	})
	require.NoError(t, err)

	rec := newRecorder()
	job := &ReconcileJob{Ledger: svc, Metrics: rec}
	task, err := NewReconcileTask("", time.Now())
	require.NoError(t, err)

	require.NoError(t, job.Handle(ctx, task))
	require.Equal(t, 0, rec.discrepancies["Unit A"])
	require.Equal(t, 1, rec.discrepancies["Unit B"])
	require.Len(t, rec.jobs[TaskReconcile], 1)
	require.NoError(t, rec.jobs[TaskReconcile][0])
}

func TestReconcileJobSkipsRetryForUnknownUnit(t *testing.T) {
	svc, _ := newLedger(t)
	rec := newRecorder()
	job := &ReconcileJob{Ledger: svc, Metrics: rec}
	task, err := NewReconcileTask("Unit Z", time.Now())
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Error(t, rec.jobs[TaskReconcile][0])
}

func TestReconcileJobRejectsMalformedPayload(t *testing.T) {
	svc, _ := newLedger(t)
	rec := newRecorder()
	job := &ReconcileJob{Ledger: svc, Metrics: rec}
	err := job.Handle(context.Background(), asynq.NewTask(TaskReconcile, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	require.Len(t, rec.jobs[TaskReconcile], 1)
	require.ErrorIs(t, rec.jobs[TaskReconcile][0], asynq.SkipRetry)
	require.Empty(t, rec.discrepancies)
}

func TestCleanupJobObservesRejectedPayload(t *testing.T) {
	rec := newRecorder()
	job := &CleanupJob{Store: &fakePurger{}, Metrics: rec}

	err := job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte("[")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	require.Len(t, rec.jobs[TaskIdempotencyCleanup], 2)
}

type fakePurger struct {
	cutoff time.Time
	err    error
}

func (f *fakePurger) PurgeIdempotencyKeys(_ context.Context, olderThan time.Time) (int64, error) {
	f.cutoff = olderThan
	return 3, f.err
}

func TestCleanupJobUsesRetention(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	purger := &fakePurger{}
	rec := newRecorder()
	job := &CleanupJob{Store: purger, Retention: 24 * time.Hour, Metrics: rec, clock: func() time.Time { return now }}

	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, now.Add(-24*time.Hour), purger.cutoff)

	task, err = NewIdempotencyCleanupTask(time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, now.Add(-time.Hour), purger.cutoff)
	require.Len(t, rec.jobs[TaskIdempotencyCleanup], 2)
}

func TestCleanupJobReportsStoreFailure(t *testing.T) {
	boom := errors.New("boom")
	rec := newRecorder()
	job := &CleanupJob{Store: &fakePurger{err: boom}, Retention: time.Hour, Metrics: rec}
	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)

	require.ErrorIs(t, job.Handle(context.Background(), task), boom)
	require.ErrorIs(t, rec.jobs[TaskIdempotencyCleanup][0], boom)
}

func TestCleanupJobAgainstMemoryStore(t *testing.T) {
	_, st := newLedger(t)
	job := &CleanupJob{Store: st, Retention: time.Hour}
	task, err := NewIdempotencyCleanupTask(0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
}

func TestHealthWithoutInspector(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(nil, nil).MountRoutes(r)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"scheduled":0,"retry":0,"archived":0}`, res.Body.String())
}

func TestHealthWithEmptyQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { _ = inspector.Close() })

	r := chi.NewRouter()
	NewHandler(inspector, nil).MountRoutes(r)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"queue":"default"`)
}
