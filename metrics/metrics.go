// Package metrics provides Prometheus instrumentation for servecore-based
// servers: a request counter and latency histogram labeled by method, path
// and status, plus the exposition handler.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the server's metrics and the Prometheus registry backing
// them.
type Registry struct {
	prom *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry creates a registry with the standard process and Go
// collectors plus the request metrics.
func NewRegistry() *Registry {
	prom := prometheus.NewRegistry()

	r := &Registry{
		prom: prom,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests processed, by method, path and status code.",
		}, []string{"method", "path", "code"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	prom.MustRegister(r.RequestsTotal, r.RequestDuration)
	return r
}

// Handler returns the /metrics exposition handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}

// statusRecorder captures the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController, keeping
// flush/hijack working for upgraded connections.
func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Middleware instruments every request passing through it.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, req)

		path := req.URL.Path
		r.RequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(rec.status)).Inc()
		r.RequestDuration.WithLabelValues(req.Method, path).Observe(time.Since(start).Seconds())
	})
}
