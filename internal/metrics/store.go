// SPDX-License-Identifier: MIT

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonewatch_store_operations_total",
		Help: "Zone document store operations by backend, operation and outcome",
	}, []string{"backend", "op", "outcome"}) // op=load|save

	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zonewatch_store_operation_duration_seconds",
		Help:    "Duration of zone document store operations",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2.0, 14),
	}, []string{"backend", "op"})

	lastSaveTime = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zonewatch_store_last_save_timestamp",
		Help: "Timestamp of the last successful save (Unix timestamp)",
	})
)

// RecordStoreOp records one store operation.
func RecordStoreOp(backend, op string, err error, elapsed time.Duration) {
	storeOperationsTotal.WithLabelValues(backend, op, outcome(err)).Inc()
	storeOperationDuration.WithLabelValues(backend, op).Observe(elapsed.Seconds())
	if op == "save" && err == nil {
		lastSaveTime.Set(float64(time.Now().Unix()))
	}
}
