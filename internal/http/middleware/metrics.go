package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "excuse"

// unmatchedPath labels requests that hit no route, so raw URLs (and the
// excuse ids inside them) never become label values.
const unmatchedPath = "unmatched"

type httpMetrics struct {
	requests *prometheus.CounterVec   // method, path, status
	latency  *prometheus.HistogramVec // method, path
	inflight prometheus.Gauge
	size     *prometheus.HistogramVec // method, path
	replays  *prometheus.CounterVec   // path
	limited  *prometheus.CounterVec   // path
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		// Generation routes wait on a remote model with retries, hence the
		// long tail buckets.
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 20, 45, 90},
		}, []string{"method", "path"}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "requests_inflight",
			Help: "HTTP requests currently being served.",
		}),
		size: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "response_size_bytes",
			Help:    "HTTP response body size by method and route.",
			Buckets: prometheus.ExponentialBuckets(128, 2, 10), // 128B..64KiB
		}, []string{"method", "path"}),
		replays: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "idempotent_replays_total",
			Help: "Responses served from a recorded Idempotency-Key.",
		}, []string{"path"}),
		limited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"path"}),
	}
}

var defaultHTTPMetrics = newHTTPMetrics(prometheus.DefaultRegisterer)

// Metrics instruments every request on the default Prometheus registry.
// Serve it with gin.WrapH(promhttp.Handler()). Replays are recognized by
// the Idempotency-Replayed response header after the chain has run, so
// Metrics may sit anywhere in the chain.
func Metrics() gin.HandlerFunc { return defaultHTTPMetrics.handler() }

func (m *httpMetrics) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inflight.Inc()
		defer m.inflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		method := c.Request.Method
		status := c.Writer.Status()

		m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if n := c.Writer.Size(); n >= 0 {
			m.size.WithLabelValues(method, path).Observe(float64(n))
		}
		if c.Writer.Header().Get(HeaderReplayed) == "true" {
			m.replays.WithLabelValues(path).Inc()
		}
		if status == http.StatusTooManyRequests {
			m.limited.WithLabelValues(path).Inc()
		}
	}
}
