package llm

import "github.com/prometheus/client_golang/prometheus"

// Labels stay bounded: style is a closed set and outcome has four values.
var (
	genTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "excuse_generation_total",
			Help: "Generations by style and outcome.",
		},
		[]string{"style", "outcome"},
	)

	genLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "excuse_generation_duration_seconds",
			Help:    "Wall time of a generation including retries and backoff.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"outcome"},
	)

	genAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "excuse_generation_attempts",
			Help:    "Backend attempts per generation.",
			Buckets: []float64{1, 2, 3, 4, 6, 8},
		},
	)

	genInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "excuse_generation_inflight",
			Help: "Backend calls currently holding a concurrency slot.",
		},
	)
)

func init() {
	prometheus.MustRegister(genTotal, genLat, genAttempts, genInflight)
}

func observe(style string, r Result) {
	genTotal.WithLabelValues(style, string(r.Outcome)).Inc()
	genLat.WithLabelValues(string(r.Outcome)).Observe(r.Elapsed.Seconds())
	genAttempts.Observe(float64(r.Attempts))
}
