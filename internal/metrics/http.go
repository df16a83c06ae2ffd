// SPDX-License-Identifier: MIT

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonewatch_http_requests_total",
		Help: "HTTP requests by route pattern, method and status code",
	}, []string{"route", "method", "code"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zonewatch_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zonewatch_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	accessDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonewatch_access_denied_total",
		Help: "Requests denied for missing scope, by operation",
	}, []string{"operation"})

	zoneReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonewatch_zone_file_reloads_total",
		Help: "Reloads triggered by out-of-band changes, by source and outcome",
	}, []string{"source", "outcome"}) // source=file|redis
)

// RecordHTTPRequest records one served request. Route is the matched
// pattern, never the raw path.
func RecordHTTPRequest(route, method string, code int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpRequestDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// TrackInFlight counts a request as in flight until the returned func runs.
func TrackInFlight() func() {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}

// IncAccessDenied counts a denied operation.
func IncAccessDenied(operation string) {
	accessDeniedTotal.WithLabelValues(operation).Inc()
}

// RecordReload counts an out-of-band reload.
func RecordReload(source string, err error) {
	zoneReloadsTotal.WithLabelValues(source, outcome(err)).Inc()
}
