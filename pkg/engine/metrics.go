package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	itemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parallelcrop_items_total",
			Help: "Total number of crop requests processed, by outcome.",
		},
		[]string{"backend", "status"},
	)

	batchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "parallelcrop_batch_duration_seconds",
			Help:    "Wall time of one batch run in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	activeContexts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "parallelcrop_active_contexts",
			Help: "Number of execution contexts that have not been closed.",
		},
	)
)

func init() {
	prometheus.MustRegister(itemsTotal)
	prometheus.MustRegister(batchDuration)
	prometheus.MustRegister(activeContexts)
}

// recordBatch counts the outcome of every item in a finished batch
func recordBatch(backend string, n, failed int, seconds float64) {
	if ok := n - failed; ok > 0 {
		itemsTotal.WithLabelValues(backend, "ok").Add(float64(ok))
	}
	if failed > 0 {
		itemsTotal.WithLabelValues(backend, "error").Add(float64(failed))
	}
	batchDuration.WithLabelValues(backend).Observe(seconds)
}
