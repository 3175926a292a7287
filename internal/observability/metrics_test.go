package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/newdim001/biz-pro/internal/shared"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesLedgerOperations(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveLedgerOp("purchase", nil, 10*time.Millisecond)
	metrics.ObserveLedgerOp("purchase", errors.Join(shared.ErrInsufficientFunds), time.Millisecond)
	metrics.ObserveJob("ledger:reconcile", nil)
	metrics.SetDiscrepancies("Unit A", 2)

	body := scrape(t, metrics)
	for _, want := range []string{
		`bizpro_ledger_operations_total{op="purchase",outcome="ok"} 1`,
		`bizpro_ledger_operations_total{op="purchase",outcome="insufficient_funds"} 1`,
		`bizpro_jobs_total{outcome="ok",task="ledger:reconcile"} 1`,
		`bizpro_reconcile_discrepancies{unit="Unit A"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected body to contain %s, got: %s", want, body)
		}
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "bizpro_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "bizpro_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestNilMetricsAreInert(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveLedgerOp("sale", nil, time.Second)
	metrics.ObserveJob("x", nil)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":                       nil,
		"invalid":                  shared.ErrValidation,
		"insufficient_entitlement": shared.ErrInsufficientEntitlement,
		"not_found":                shared.ErrNotFound,
		"conflict":                 shared.ErrDuplicateSubmission,
		"error":                    errors.New("boom"),
	}
	for want, err := range cases {
		if got := Outcome(err); got != want {
			t.Fatalf("Outcome(%v) = %s, want %s", err, got, want)
		}
	}
}
