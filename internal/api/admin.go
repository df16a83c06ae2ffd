// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/log"
)

// SubmitResponse acknowledges an accepted zone document.
type SubmitResponse struct {
	Zones []string `json:"zones"`
}

// KindsResponse lists the registered component kinds.
type KindsResponse struct {
	Kinds []string `json:"kinds"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	doc, err := s.access.Config(r.Context(), principal(r))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	out, err := derived.MarshalDocument(doc)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// handleSubmitConfig replaces every zone with the submitted YAML or JSON
// document. Authorization is checked before the body is read.
func (s *Server) handleSubmitConfig(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if err := s.access.CheckAdmin(r.Context(), p); err != nil {
		RespondError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(w, r, ErrBodyTooLarge)
			return
		}
		RespondError(w, r, err)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		RespondError(w, r, ErrEmptyBody)
		return
	}
	doc, err := derived.DecodeDocument(bytes.NewReader(body))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	if err := s.access.SubmitConfig(r.Context(), p, doc); err != nil {
		RespondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, SubmitResponse{Zones: nonNil(doc.Names())})
}

func (s *Server) handlePersist(w http.ResponseWriter, r *http.Request) {
	if err := s.access.Persist(r.Context(), principal(r)); err != nil {
		RespondError(w, r, err)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().Str(log.FieldEvent, "config.persisted").Msg("zone configuration persisted on request")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	kinds, err := s.access.Kinds(r.Context(), principal(r))
	if err != nil {
		RespondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, KindsResponse{Kinds: nonNil(kinds)})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
