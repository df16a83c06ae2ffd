// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ManuGH/zonewatch/internal/access"
	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/log"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// IndexResponse is the body of GET /.
type IndexResponse struct {
	Service string            `json:"service"`
	Version string            `json:"version,omitempty"`
	Links   map[string]string `json:"links"`
}

// ZoneLink is one entry of the zone listing.
type ZoneLink struct {
	Name  string            `json:"name"`
	Href  string            `json:"href"`
	Views map[string]string `json:"views"`
}

// ZoneListResponse is the body of GET /health.
type ZoneListResponse struct {
	Zones []ZoneLink `json:"zones"`
}

// ZoneResponse is the body of the zone page and its json view.
type ZoneResponse struct {
	Zone     string                   `json:"zone"`
	Result   derived.Result           `json:"result"`
	Log      string                   `json:"log"`
	Degraded bool                     `json:"degraded"`
	Reports  *derived.Reports[string] `json:"reports"`
	Views    map[string]string        `json:"views,omitempty"`
}

func zoneHref(name string) string {
	return "/health/zone/" + url.PathEscape(name)
}

func zoneViews(name string) map[string]string {
	base := zoneHref(name)
	return map[string]string{
		"json": base + "/api/json",
		"xml":  base + "/api/xml",
		"sh":   base + "/api/sh",
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	links := map[string]string{"liveness": "/healthz", "readiness": "/readyz"}
	if s.access.Visible(principal(r)) {
		links["zones"] = "/health"
	}
	writeJSON(w, r, http.StatusOK, IndexResponse{Service: "zonewatch", Version: s.deps.Version, Links: links})
}

// handleListZones lists the zones the caller may read. Callers without the
// read scope get an empty listing rather than a denial.
func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	resp := ZoneListResponse{Zones: []ZoneLink{}}
	p := principal(r)
	if !s.access.Visible(p) {
		writeJSON(w, r, http.StatusOK, resp)
		return
	}
	zones, err := s.access.ListZones(r.Context(), p)
	if err != nil {
		RespondError(w, r, err)
		return
	}
	for _, z := range zones {
		resp.Zones = append(resp.Zones, ZoneLink{Name: z.Name(), Href: zoneHref(z.Name()), Views: zoneViews(z.Name())})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// zoneName decodes the {name} path segment. chi hands out the escaped
// segment only when the request path needed escaping, so the raw value is
// re-escaped first to give the binder one form to unescape.
func zoneName(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		raw = url.PathEscape(raw)
	}
	var name string
	err := runtime.BindStyledParameterWithOptions("simple", "name", raw, &name, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadZoneName, err)
	}
	return name, nil
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) (access.Response[string], bool) {
	name, err := zoneName(r)
	if err != nil {
		RespondError(w, r, err)
		return access.Response[string]{}, false
	}
	resp, err := s.access.QueryAggregate(r.Context(), principal(r), name)
	if err != nil {
		RespondError(w, r, err)
		return access.Response[string]{}, false
	}
	return resp, true
}

func toZoneResponse(resp access.Response[string]) ZoneResponse {
	return ZoneResponse{
		Zone:     resp.Zone,
		Result:   resp.Combined.Result(),
		Log:      resp.Combined.Value(),
		Degraded: resp.Degraded,
		Reports:  resp.Reports,
	}
}

// handleZone renders the zone page. The page itself always answers 200 and
// shows a degraded zone as such; only the api views switch to 503.
func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.query(w, r)
	if !ok {
		return
	}
	body := toZoneResponse(resp)
	body.Views = zoneViews(resp.Zone)
	writeJSON(w, r, http.StatusOK, body)
}

// viewHandler answers with the degraded message when the zone is degraded
// and with render otherwise.
func (s *Server) viewHandler(render func(w http.ResponseWriter, r *http.Request, resp access.Response[string])) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, ok := s.query(w, r)
		if !ok {
			return
		}
		if resp.Degraded {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(resp.Status)
			_, _ = w.Write([]byte(resp.Message))
			return
		}
		render(w, r, resp)
	}
}

func (s *Server) handleZoneJSON(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(func(w http.ResponseWriter, r *http.Request, resp access.Response[string]) {
		writeJSON(w, r, resp.Status, toZoneResponse(resp))
	})(w, r)
}

func (s *Server) handleZoneXML(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(func(w http.ResponseWriter, r *http.Request, resp access.Response[string]) {
		out, err := renderXML(resp)
		if err != nil {
			RespondError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/xml; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(resp.Status)
		_, _ = w.Write(out)
	})(w, r)
}

func (s *Server) handleZoneShell(w http.ResponseWriter, r *http.Request) {
	s.viewHandler(func(w http.ResponseWriter, r *http.Request, resp access.Response[string]) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(resp.Status)
		_, _ = w.Write([]byte(renderShell(resp)))
	})(w, r)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str(log.FieldEvent, "api.encode_failed").Msg("failed to encode response")
	}
}
