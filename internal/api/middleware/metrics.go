// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/zonewatch/internal/metrics"
)

// Metrics records request counts and latency by chi route pattern, which
// keeps zone names out of the label set.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := metrics.TrackInFlight()
		defer done()

		start := time.Now()
		sw := wrap(w)
		next.ServeHTTP(sw, r)
		metrics.RecordHTTPRequest(routePattern(r), r.Method, sw.status, time.Since(start))
	})
}
