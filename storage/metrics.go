package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperationHistogram latency of storage operations by storage and operation
var OperationHistogram = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pixbright_storage_operation_duration_seconds",
		Help:    "A histogram of storage operation latencies",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	},
	[]string{"storage", "operation", "status"},
)

func init() {
	prometheus.MustRegister(OperationHistogram)
}

// Observe records an operation started at start
func Observe(storage, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	OperationHistogram.WithLabelValues(storage, operation, status).Observe(time.Since(start).Seconds())
}
