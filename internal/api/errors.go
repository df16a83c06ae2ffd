// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/zonewatch/internal/access"
	"github.com/ManuGH/zonewatch/internal/auth"
	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/health"
	"github.com/ManuGH/zonewatch/internal/log"
)

// APIError is a problem the API reports with a stable machine-readable code.
type APIError struct {
	Code    string
	Title   string
	Status  int
	Details string
}

var (
	ErrUnauthorized  = &APIError{Code: "UNAUTHORIZED", Title: "Unauthorized", Status: http.StatusUnauthorized}
	ErrForbidden     = &APIError{Code: "FORBIDDEN", Title: "Forbidden", Status: http.StatusForbidden}
	ErrNotFound      = &APIError{Code: "ZONE_NOT_FOUND", Title: "Zone not found", Status: http.StatusNotFound}
	ErrBadZoneName   = &APIError{Code: "INVALID_ZONE_NAME", Title: "Invalid zone name", Status: http.StatusBadRequest}
	ErrBadDocument   = &APIError{Code: "INVALID_DOCUMENT", Title: "Invalid zone document", Status: http.StatusBadRequest}
	ErrEmptyBody     = &APIError{Code: "EMPTY_BODY", Title: "Request body is empty", Status: http.StatusBadRequest}
	ErrBodyTooLarge  = &APIError{Code: "BODY_TOO_LARGE", Title: "Request body too large", Status: http.StatusRequestEntityTooLarge}
	ErrPersistFailed = &APIError{
		Code:    "PERSIST_FAILED",
		Title:   "Zone configuration could not be saved",
		Status:  http.StatusInternalServerError,
		Details: "the previous configuration is still active; retry with POST /healthConsole/persist or resubmit",
	}
	ErrInternal = &APIError{Code: "INTERNAL_ERROR", Title: "Internal server error", Status: http.StatusInternalServerError}
)

func (e *APIError) Error() string { return e.Title }

// documentErrors are caller mistakes in a submitted zone document.
var documentErrors = []error{
	derived.ErrCorruptDocument,
	derived.ErrInvalidDocument,
	derived.ErrUnknownKind,
	derived.ErrDuplicateZone,
	derived.ErrEmptyZoneName,
	derived.ErrNotDescribable,
	health.ErrInvalidParams,
}

// classify maps a service error to the problem it is reported as.
func classify(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, auth.ErrInvalidToken):
		return ErrUnauthorized
	case errors.Is(err, access.ErrAccessDenied):
		return ErrForbidden
	case errors.Is(err, access.ErrZoneNotFound):
		return ErrNotFound
	case errors.Is(err, derived.ErrPersist):
		return ErrPersistFailed
	}
	for _, target := range documentErrors {
		if errors.Is(err, target) {
			return ErrBadDocument
		}
	}
	return ErrInternal
}

// RespondError writes err as an RFC 7807 problem. The detail of a 4xx
// problem is the error text; 5xx problems never echo internal errors.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	p := classify(err)
	detail := p.Details
	if p.Status < http.StatusInternalServerError && detail == "" && !isSentinel(err, p) {
		detail = err.Error()
	}

	logger := log.WithComponentFromContext(r.Context(), "api")
	ev := logger.Warn()
	if p.Status >= http.StatusInternalServerError {
		ev = logger.Error()
	}
	ev.Err(err).
		Str(log.FieldEvent, "api.error").
		Str("code", p.Code).
		Int("status", p.Status).
		Str("path", r.URL.Path).
		Msg("request failed")

	writeProblem(w, r, p.Status, p.Code, p.Title, detail)
}

// isSentinel reports whether err carries no more information than p itself.
// Denials stay terse so they reveal nothing about the zones.
func isSentinel(err error, p *APIError) bool {
	return p == ErrForbidden || p == ErrUnauthorized || err == error(p)
}

func writeProblem(w http.ResponseWriter, r *http.Request, status int, code, title, detail string) {
	res := map[string]any{
		"type":   "zonewatch/" + code,
		"title":  title,
		"status": status,
		"code":   code,
	}
	if reqID := log.RequestIDFromContext(r.Context()); reqID != "" {
		res["request_id"] = reqID
	}
	if detail != "" {
		res["detail"] = detail
	}
	if instance := r.URL.EscapedPath(); instance != "" {
		res["instance"] = instance
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="zonewatch"`)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "api.encode_failed").Msg("failed to encode problem response")
	}
}
