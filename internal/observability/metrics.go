package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newdim001/biz-pro/internal/shared"
)

// Metrics collects the Prometheus metrics of the process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ledgerOps       *prometheus.CounterVec
	ledgerDuration  *prometheus.HistogramVec
	jobsTotal       *prometheus.CounterVec
	discrepancies   *prometheus.GaugeVec
}

// NewMetrics initialises the registry and every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizpro_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bizpro_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	ledgerOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizpro_ledger_operations_total",
		Help: "Ledger commands by operation and outcome.",
	}, []string{"op", "outcome"})
	ledgerDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bizpro_ledger_operation_duration_seconds",
		Help:    "Ledger command latency including lock wait.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bizpro_jobs_total",
		Help: "Background jobs by task type and outcome.",
	}, []string{"task", "outcome"})
	discrepancies := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bizpro_reconcile_discrepancies",
		Help: "Discrepancies found by the last reconciliation run per unit.",
	}, []string{"unit"})
	registry.MustRegister(requests, duration, ledgerOps, ledgerDuration, jobs, discrepancies)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		ledgerOps:       ledgerOps,
		ledgerDuration:  ledgerDuration,
		jobsTotal:       jobs,
		discrepancies:   discrepancies,
	}
}

// Handler returns the http.Handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveLedgerOp counts one ledger command. The outcome label is the
// error kind, so label cardinality stays bounded.
func (m *Metrics) ObserveLedgerOp(op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ledgerOps.WithLabelValues(op, Outcome(err)).Inc()
	m.ledgerDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveJob counts one background job execution.
func (m *Metrics) ObserveJob(task string, err error) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(task, Outcome(err)).Inc()
}

// SetDiscrepancies publishes the reconciliation result of unit.
func (m *Metrics) SetDiscrepancies(unit string, count int) {
	if m == nil {
		return
	}
	m.discrepancies.WithLabelValues(unit).Set(float64(count))
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Outcome maps an error to a metric label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrValidation):
		return "invalid"
	case errors.Is(err, shared.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, shared.ErrInsufficientEntitlement):
		return "insufficient_entitlement"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	case errors.Is(err, shared.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
