// SPDX-License-Identifier: MIT

// Package middleware holds the HTTP middleware of the zonewatch API.
package middleware

import (
	"github.com/go-chi/chi/v5"
)

// StackConfig configures the ingress middleware stack.
type StackConfig struct {
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool
}

// NewRouter constructs a chi router with the middleware stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	ApplyStack(r, cfg)
	return r
}

// ApplyStack applies the middleware stack to r, outermost first.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	if cfg.EnableMetrics {
		r.Use(Metrics)
	}
	if cfg.TracingService != "" {
		r.Use(OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		r.Use(AccessLog)
	}
}
