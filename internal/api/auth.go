// SPDX-License-Identifier: MIT

package api

import (
	"net/http"

	"github.com/ManuGH/zonewatch/internal/auth"
	"github.com/ManuGH/zonewatch/internal/log"
	"github.com/ManuGH/zonewatch/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// authenticate resolves the caller and stores the principal in the request
// context. A presented token that matches nothing is rejected outright;
// callers without a token continue as the anonymous principal.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := s.authn.Authenticate(r)
		if err != nil {
			RespondError(w, r, err)
			return
		}
		ctx := auth.ContextWithPrincipal(r.Context(), p)
		ctx = log.ContextWithPrincipalID(ctx, p.ID)
		trace.SpanFromContext(ctx).SetAttributes(attribute.String(telemetry.PrincipalKey, p.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principal(r *http.Request) *auth.Principal {
	return auth.PrincipalFromContext(r.Context())
}
