package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	parsed   *prometheus.CounterVec
	failures *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "counter_http_requests_total",
			Help: "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "counter_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		parsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "counter_reports_parsed_total",
			Help: "Reports parsed successfully by report type.",
		}, []string{"report_type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "counter_report_failures_total",
			Help: "Rejected uploads by failure kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.requests, m.duration, m.parsed, m.failures)
	return m
}

func (m *Metrics) ReportParsed(reportType string) {
	m.parsed.WithLabelValues(reportType).Inc()
}

func (m *Metrics) ReportFailed(kind string) {
	m.failures.WithLabelValues(kind).Inc()
}

// Handler records request counts and latency labelled by the matched chi
// route pattern.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}
