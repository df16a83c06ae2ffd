// SPDX-License-Identifier: MIT

// Package api serves the zone pages, their json/xml/sh views and the admin
// console over HTTP.
package api

import (
	"net/http"

	"github.com/ManuGH/zonewatch/internal/access"
	"github.com/ManuGH/zonewatch/internal/api/middleware"
	"github.com/ManuGH/zonewatch/internal/auth"
	"github.com/ManuGH/zonewatch/internal/health"
	"github.com/ManuGH/zonewatch/internal/log"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// DefaultMaxBodyBytes bounds a submitted zone document.
const DefaultMaxBodyBytes = 1 << 20

// Deps are the collaborators the API serves.
type Deps struct {
	Access        *access.Service[string]
	Authenticator *auth.Authenticator
	Probes        *health.Probes

	// AdminRateLimit is the number of admin requests allowed per client per
	// minute. Zero disables the limit.
	AdminRateLimit int
	// TracingService names the HTTP spans. Empty disables request tracing.
	TracingService string
	MaxBodyBytes   int64
	Version        string
}

// Server is the zonewatch HTTP API.
type Server struct {
	access  *access.Service[string]
	authn   *auth.Authenticator
	probes  *health.Probes
	deps    Deps
	logger  zerolog.Logger
	handler http.Handler
}

// New builds the API server and its routes.
func New(deps Deps) *Server {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if deps.Probes == nil {
		deps.Probes = health.NewProbes(deps.Version)
	}
	s := &Server{
		access: deps.Access,
		authn:  deps.Authenticator,
		probes: deps.Probes,
		deps:   deps,
		logger: log.WithComponent("api"),
	}
	s.handler = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.deps.TracingService,
		EnableLogging:  true,
	})

	r.Get("/healthz", s.probes.ServeLive)
	r.Get("/readyz", s.probes.ServeReady)
	r.Get("/openapi.yaml", handleOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/", s.handleIndex)
		r.Get("/health", s.handleListZones)
		r.Route("/health/zone/{name}", func(r chi.Router) {
			r.Get("/", s.handleZone)
			r.Get("/api/json", s.handleZoneJSON)
			r.Get("/api/xml", s.handleZoneXML)
			r.Get("/api/sh", s.handleZoneShell)
		})

		r.Route("/healthConsole", func(r chi.Router) {
			if s.deps.AdminRateLimit > 0 {
				r.Use(middleware.AdminRateLimit(s.deps.AdminRateLimit))
			}
			r.Get("/config", s.handleGetConfig)
			r.Post("/configSubmit", s.handleSubmitConfig)
			r.Post("/persist", s.handlePersist)
			r.Get("/kinds", s.handleKinds)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "NOT_FOUND", "Not Found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method Not Allowed", "")
	})
	return r
}
