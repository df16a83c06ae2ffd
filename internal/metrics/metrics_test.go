// SPDX-License-Identifier: MIT

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromhttpExposure(t *testing.T) {
	RecordStoreOp("file", "save", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "zonewatch_store_operations_total"))
}

func TestObserverRecordsZones(t *testing.T) {
	o := NewObserver()
	before := testutil.ToFloat64(zoneEvaluationsTotal.WithLabelValues("metrics-test", "FAILURE"))

	o.ObserveComponent("metrics-test", "DebugCheck [ttl={0},count=0]", derived.Failure, time.Millisecond)
	o.ObserveZone("metrics-test", derived.Failure, 2*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(zoneEvaluationsTotal.WithLabelValues("metrics-test", "FAILURE")))
	assert.Equal(t, float64(derived.Failure), testutil.ToFloat64(zoneResult.WithLabelValues("metrics-test")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(componentDerivationsTotal.WithLabelValues("metrics-test", "FAILURE")), 1.0)
}

func TestObserveRegistryForgetsRemovedZones(t *testing.T) {
	o := NewObserver()
	o.ObserveRegistry("replace", []string{"gone", "stays"}, nil)
	o.ObserveZone("gone", derived.Success, time.Millisecond)
	o.ObserveZone("stays", derived.Unstable, time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(registryZones))

	o.ObserveRegistry("replace", []string{"stays"}, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(registryZones))
	assert.Equal(t, 0, testutil.CollectAndCount(zoneResult.MustCurryWith(map[string]string{"zone": "gone"})))
	assert.Equal(t, float64(derived.Unstable), testutil.ToFloat64(zoneResult.WithLabelValues("stays")))

	before := testutil.ToFloat64(registryChangesTotal.WithLabelValues("replace", "failure"))
	o.ObserveRegistry("replace", nil, errors.New("disk full"))
	assert.Equal(t, before+1, testutil.ToFloat64(registryChangesTotal.WithLabelValues("replace", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(registryZones), "failed change keeps the zone count")
}

func TestStaleZoneEvaluationIsForgottenOnNextReplace(t *testing.T) {
	o := NewObserver()
	o.ObserveRegistry("replace", []string{"current"}, nil)

	// a request still holding a zone removed by the replace above
	o.ObserveComponent("retired", "DebugCheck [ttl={0},count=0]", derived.Failure, time.Millisecond)
	o.ObserveZone("retired", derived.Failure, time.Millisecond)
	require.True(t, hasZoneSeries(t, "zonewatch_zone_result", "retired"))

	o.ObserveRegistry("replace", []string{"current"}, nil)
	assert.False(t, hasZoneSeries(t, "zonewatch_zone_result", "retired"))
	assert.False(t, hasZoneSeries(t, "zonewatch_zone_evaluations_total", "retired"))
	assert.False(t, hasZoneSeries(t, "zonewatch_component_derivations_total", "retired"))
}

func hasZoneSeries(t *testing.T, name, zone string) bool {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "zone" && l.GetValue() == zone {
					return true
				}
			}
		}
	}
	return false
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("unmatched", "GET", "404"))
	RecordHTTPRequest("", http.MethodGet, http.StatusNotFound, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("unmatched", "GET", "404")))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(accessDeniedTotal.WithLabelValues("lookup"))
	IncAccessDenied("lookup")
	assert.Equal(t, before+1, testutil.ToFloat64(accessDeniedTotal.WithLabelValues("lookup")))

	before = testutil.ToFloat64(zoneReloadsTotal.WithLabelValues("file", "failure"))
	RecordReload("file", errors.New("corrupt"))
	assert.Equal(t, before+1, testutil.ToFloat64(zoneReloadsTotal.WithLabelValues("file", "failure")))
}
