package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	serviceReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_service_requests_total",
			Help: "Requests issued to the rule service, by operation and outcome",
		},
		[]string{"op", "outcome"},
	)
	serviceDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rule_service_request_duration_seconds",
			Help:    "Rule service request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_evaluations_total",
			Help: "Resolved rule evaluations by verdict",
		},
		[]string{"verdict"},
	)

	initOnce sync.Once
)

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, serviceReqs, serviceDur, evaluations)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveServiceCall records one outbound rule service request.
func ObserveServiceCall(op, outcome string, d time.Duration) {
	serviceReqs.WithLabelValues(op, outcome).Inc()
	serviceDur.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveVerdict records a resolved evaluation.
func ObserveVerdict(eligible bool) {
	v := "not_eligible"
	if eligible {
		v = "eligible"
	}
	evaluations.WithLabelValues(v).Inc()
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// the route pattern is only complete once chi has finished routing
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
