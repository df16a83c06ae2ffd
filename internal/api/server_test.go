// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuGH/zonewatch/internal/access"
	"github.com/ManuGH/zonewatch/internal/auth"
	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/health"
	"github.com/ManuGH/zonewatch/internal/inventory"
	"github.com/ManuGH/zonewatch/internal/plugins"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	readerToken = "reader-token"
	adminToken  = "admin-token"
)

type fixture struct {
	store   *derived.MemoryStore
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f, err := health.NewFactory(health.Deps{
		Inventory: inventory.NewStatic(inventory.Node{Name: "master", Executors: 2, Online: true}),
		Catalog:   plugins.NewStatic(nil),
	})
	require.NoError(t, err)
	store := derived.NewMemoryStore()
	reg, err := derived.NewRegistry(context.Background(), store, f, derived.WithLogger[string](zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, reg.Apply(context.Background(), derived.Document{Zones: []derived.ZoneSpec{
		{Name: "fine", Components: []derived.ComponentSpec{
			{Kind: health.KindExecutor, Params: derived.Params{"min_executors": 1}},
		}},
		{Name: "ops", Components: []derived.ComponentSpec{
			{Kind: health.KindExecutor, Params: derived.Params{"min_executors": 1}},
			{Kind: health.KindExecutor, Params: derived.Params{"min_executors": 100}},
		}},
	}}))

	srv := New(Deps{
		Access: access.NewService[string](reg, access.WithLogger[string](zerolog.Nop())),
		Authenticator: auth.NewAuthenticator([]auth.TokenEntry{
			{Token: readerToken, User: "reader", Scopes: []string{"health:check"}},
			{Token: adminToken, User: "admin", Scopes: []string{"health:admin"}},
		}, nil),
		Version: "test",
	})
	return &fixture{store: store, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestProbesAreUngated(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = f.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIndexLinksFollowVisibility(t *testing.T) {
	f := newFixture(t)

	var idx IndexResponse
	rec := f.do(t, http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idx))
	assert.NotContains(t, idx.Links, "zones")

	rec = f.do(t, http.MethodGet, "/", readerToken, "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &idx))
	assert.Equal(t, "/health", idx.Links["zones"])
	assert.Equal(t, "test", idx.Version)
}

func TestListZones(t *testing.T) {
	f := newFixture(t)

	var list ZoneListResponse
	rec := f.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Zones)

	rec = f.do(t, http.MethodGet, "/health", readerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Zones, 2)
	assert.Equal(t, "fine", list.Zones[0].Name)
	assert.Equal(t, "/health/zone/ops", list.Zones[1].Href)
	assert.Equal(t, "/health/zone/ops/api/sh", list.Zones[1].Views["sh"])
}

func TestInvalidTokenIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "nope", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	body := decodeProblem(t, rec)
	assert.Equal(t, "UNAUTHORIZED", body["code"])
}

func TestDenialHidesZoneExistence(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/health/zone/ops", "/health/zone/missing/api/json"} {
		rec := f.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		body := decodeProblem(t, rec)
		assert.Equal(t, "FORBIDDEN", body["code"])
		assert.NotContains(t, body, "detail")
	}

	rec := f.do(t, http.MethodGet, "/health/zone/missing/api/json", readerToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ZONE_NOT_FOUND", decodeProblem(t, rec)["code"])
}

func TestZonePageAlwaysAnswersOK(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health/zone/ops", readerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page ZoneResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "ops", page.Zone)
	assert.Equal(t, derived.Failure, page.Result)
	assert.True(t, page.Degraded)
	assert.Contains(t, page.Log, "need at least 100")
	assert.Equal(t, "/health/zone/ops/api/xml", page.Views["xml"])
}

func TestViewsShareDegradedGate(t *testing.T) {
	f := newFixture(t)
	for _, view := range []string{"json", "xml", "sh"} {
		rec := f.do(t, http.MethodGet, "/health/zone/ops/api/"+view, readerToken, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, view)
		assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"), view)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "Zone 'ops' is FAILURE:\n"), view)
	}
}

func TestJSONView(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health/zone/fine/api/json", readerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"zone": "fine",
		"result": "SUCCESS",
		"log": "",
		"degraded": false,
		"reports": {"ExecutorCheck [label={},minExecutors=1]": {"result": "SUCCESS", "value": ""}}
	}`, rec.Body.String())
}

func TestXMLView(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health/zone/fine/api/xml", readerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml; charset=utf-8", rec.Header().Get("Content-Type"))

	var doc xmlZone
	require.NoError(t, xml.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "fine", doc.Name)
	assert.Equal(t, "SUCCESS", doc.Result)
	require.Len(t, doc.Reports, 1)
	assert.Equal(t, "ExecutorCheck [label={},minExecutors=1]", doc.Reports[0].Key)
}

func TestShellView(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health/zone/fine/api/sh", readerToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ZONE='fine'\n"+
		"RESULT='SUCCESS'\n"+
		"REPORTS='1'\n"+
		"REPORT_0_KEY='ExecutorCheck [label={},minExecutors=1]'\n"+
		"REPORT_0_RESULT='SUCCESS'\n"+
		"REPORT_0_VALUE=''\n"+
		"LOG=''\n", rec.Body.String())
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
	assert.Equal(t, "''", shellQuote(""))
	assert.Equal(t, "'a\nb'", shellQuote("a\nb"))
}

func TestAdminRequiresAdminScope(t *testing.T) {
	f := newFixture(t)
	saves := f.store.Saves()
	cases := []struct{ method, path string }{
		{http.MethodGet, "/healthConsole/config"},
		{http.MethodPost, "/healthConsole/configSubmit"},
		{http.MethodPost, "/healthConsole/persist"},
		{http.MethodGet, "/healthConsole/kinds"},
	}
	for _, tc := range cases {
		rec := f.do(t, tc.method, tc.path, readerToken, "zones: []")
		assert.Equal(t, http.StatusForbidden, rec.Code, tc.path)
	}
	assert.Equal(t, saves, f.store.Saves(), "denied admin calls must not save")
}

func TestGetConfigAndKinds(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthConsole/config", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	doc, err := derived.UnmarshalDocument(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"fine", "ops"}, doc.Names())

	var kinds KindsResponse
	rec = f.do(t, http.MethodGet, "/healthConsole/kinds", adminToken, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &kinds))
	assert.Contains(t, kinds.Kinds, health.KindDebug)
	assert.Contains(t, kinds.Kinds, health.KindExecutor)
}

func TestSubmitConfig(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/healthConsole/configSubmit", adminToken,
		"zones:\n  - name: only\n    components:\n      - kind: debug\n        params:\n          ttl: -1\n")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ack SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, []string{"only"}, ack.Zones)

	rec = f.do(t, http.MethodGet, "/health/zone/ops/api/json", readerToken, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodGet, "/health/zone/only/api/json", readerToken, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/healthConsole/configSubmit", adminToken,
		`{"zones":[{"name":"json","components":[{"kind":"executor","params":{"min_executors":1}}]}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestSubmitConfigRejectsBadDocuments(t *testing.T) {
	f := newFixture(t)
	cases := map[string]struct {
		body string
		code string
	}{
		"empty":          {body: "  \n", code: "EMPTY_BODY"},
		"unknown field":  {body: "zones: []\nbogus: 1\n", code: "INVALID_DOCUMENT"},
		"unknown kind":   {body: "zones:\n  - name: a\n    components:\n      - kind: nope\n", code: "INVALID_DOCUMENT"},
		"duplicate zone": {body: "zones:\n  - name: a\n  - name: a\n", code: "INVALID_DOCUMENT"},
		"bad params":     {body: "zones:\n  - name: a\n    components:\n      - kind: debug\n        params:\n          ttl: many\n", code: "INVALID_DOCUMENT"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/healthConsole/configSubmit", adminToken, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tc.code, decodeProblem(t, rec)["code"])
		})
	}

	rec := f.do(t, http.MethodGet, "/health/zone/ops/api/sh", readerToken, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "previous zones stay active")
}

func TestSubmitConfigPersistFailure(t *testing.T) {
	f := newFixture(t)
	f.store.FailSaves(errors.New("read-only file system"))

	rec := f.do(t, http.MethodPost, "/healthConsole/configSubmit", adminToken, "zones:\n  - name: next\n")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, "PERSIST_FAILED", body["code"])
	assert.Contains(t, body["detail"], "retry")
	assert.NotContains(t, body["detail"], "read-only")

	rec = f.do(t, http.MethodPost, "/healthConsole/persist", adminToken, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	f.store.FailSaves(nil)
	rec = f.do(t, http.MethodPost, "/healthConsole/persist", adminToken, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSubmitConfigBodyLimit(t *testing.T) {
	f := newFixture(t)
	srv := New(Deps{
		Access:        access.NewService[string](nil, access.WithLogger[string](zerolog.Nop())),
		Authenticator: auth.NewAuthenticator([]auth.TokenEntry{{Token: adminToken, Scopes: []string{"*"}}}, nil),
		MaxBodyBytes:  16,
	})
	f.handler = srv.Handler()
	rec := f.do(t, http.MethodPost, "/healthConsole/configSubmit", adminToken, "zones:\n  - name: "+strings.Repeat("x", 64)+"\n")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestAdminRateLimit(t *testing.T) {
	f := newFixture(t)
	srv := New(Deps{
		Access:         access.NewService[string](nil, access.WithLogger[string](zerolog.Nop())),
		Authenticator:  auth.NewAuthenticator(nil, nil),
		AdminRateLimit: 2,
	})
	f.handler = srv.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, f.do(t, http.MethodGet, "/healthConsole/kinds", "", "").Code)
	}
	assert.Equal(t, []int{http.StatusForbidden, http.StatusForbidden, http.StatusTooManyRequests}, codes)

	rec := f.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeProblem(t, rec)["code"])

	rec = f.do(t, http.MethodDelete, "/healthConsole/persist", adminToken, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestClassify(t *testing.T) {
	assert.Same(t, ErrForbidden, classify(access.ErrAccessDenied))
	assert.Same(t, ErrPersistFailed, classify(&derived.PersistError{Op: "save", Err: errors.New("x")}))
	assert.Same(t, ErrBadDocument, classify(health.ErrInvalidParams))
	assert.Same(t, ErrInternal, classify(errors.New("boom")))
	assert.Same(t, ErrEmptyBody, classify(ErrEmptyBody))
}
