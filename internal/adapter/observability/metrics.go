// Package observability provides logging, metrics, and tracing.
package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI provider call attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI provider call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"provider"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Cumulative tokens consumed across all AI call attempts",
		},
		[]string{"provider"},
	)

	FaultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faults_total",
			Help: "Faults intercepted by the fault boundary, by kind",
		},
		[]string{"kind"},
	)
	SuppressedFaultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "faults_suppressed_total",
			Help: "Benign platform faults resolved inside the fault boundary",
		},
	)

	AdmissionDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admission_decisions_total",
			Help: "Admission gate decisions by outcome",
		},
		[]string{"decision"},
	)
	ActiveBans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "admission_active_bans",
			Help: "Callers currently inside a soft-ban window",
		},
	)

	LeadsCapturedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_captured_total",
			Help: "Leads appended to the record store",
		},
	)
)

// InitMetrics registers all Prometheus collectors once per process.
func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AITokensTotal)
	prometheus.MustRegister(FaultsTotal)
	prometheus.MustRegister(SuppressedFaultsTotal)
	prometheus.MustRegister(AdmissionDecisionsTotal)
	prometheus.MustRegister(ActiveBans)
	prometheus.MustRegister(LeadsCapturedTotal)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveAICall records one provider call attempt.
func ObserveAICall(provider, outcome string, dur time.Duration, tokens int) {
	AIRequestsTotal.WithLabelValues(provider, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider).Observe(dur.Seconds())
	if tokens > 0 {
		AITokensTotal.WithLabelValues(provider).Add(float64(tokens))
	}
}
