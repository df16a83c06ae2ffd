// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"

	"github.com/ManuGH/zonewatch/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OTelHTTP wraps the handler with OpenTelemetry HTTP instrumentation.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			routeAttribute(next),
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips probe and metrics endpoints.
func shouldTrace(r *http.Request) bool {
	return !isProbe(r.URL.Path)
}

// spanNameFormatter names spans "HTTP {METHOD}"; the route is attached as an
// attribute once chi has matched it.
func spanNameFormatter(_ string, r *http.Request) string {
	return "HTTP " + r.Method
}

func routeAttribute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if route := routePattern(r); route != "" {
			span := trace.SpanFromContext(r.Context())
			span.SetName("HTTP " + r.Method + " " + route)
			span.SetAttributes(attribute.String(telemetry.HTTPRouteKey, route))
		}
	})
}
