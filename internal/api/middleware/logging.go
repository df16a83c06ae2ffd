// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/zonewatch/internal/log"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// AccessLog logs one line per request after it completes. Probe endpoints
// are logged at debug level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := wrap(w)
		next.ServeHTTP(sw, r)

		logger := log.WithComponentFromContext(r.Context(), "http")
		level := zerolog.InfoLevel
		switch {
		case sw.status >= 500:
			level = zerolog.ErrorLevel
		case isProbe(r.URL.Path):
			level = zerolog.DebugLevel
		}
		logger.WithLevel(level).
			Str("event", "http.request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", routePattern(r)).
			Int("status", sw.status).
			Int("bytes", sw.written).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request served")
	})
}

func isProbe(path string) bool {
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	return false
}

// routePattern returns the chi route pattern matched by r, or "" when none
// matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
