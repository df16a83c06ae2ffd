// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors of the service. Collectors
// are registered with the default registry at init.
package metrics

import (
	"time"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	zoneEvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonewatch_zone_evaluations_total",
		Help: "Zone evaluations by combined result",
	}, []string{"zone", "result"})

	zoneEvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zonewatch_zone_evaluation_duration_seconds",
		Help:    "Time to derive every component of a zone",
		Buckets: prometheus.ExponentialBuckets(0.001, 2.0, 14), // 1ms .. ~8s
	}, []string{"zone"})

	zoneResult = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zonewatch_zone_result",
		Help: "Combined result of the last evaluation (1=SUCCESS 2=UNSTABLE 3=ABORTED 4=FAILURE)",
	}, []string{"zone"})

	componentDerivationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonewatch_component_derivations_total",
		Help: "Component derivations by result",
	}, []string{"zone", "result"})

	componentDerivationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zonewatch_component_derivation_duration_seconds",
		Help:    "Time to derive a single component",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2.0, 14),
	}, []string{"zone"})

	registryZones = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zonewatch_registry_zones",
		Help: "Number of zones in the published mapping",
	})

	registryChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zonewatch_registry_changes_total",
		Help: "Attempts to change the zone mapping by kind and outcome",
	}, []string{"kind", "outcome"}) // kind=replace|reload|persist outcome=success|failure
)

// Observer records derivation and registry activity. It implements
// derived.Observer and derived.RegistryObserver.
type Observer struct{}

// NewObserver returns an Observer.
func NewObserver() Observer { return Observer{} }

// ObserveComponent implements derived.Observer. Component keys are not used
// as labels because they may embed changing state.
func (Observer) ObserveComponent(zone, _ string, result derived.Result, elapsed time.Duration) {
	recordZone(zone, func() {
		componentDerivationsTotal.WithLabelValues(zone, result.String()).Inc()
		componentDerivationDuration.WithLabelValues(zone).Observe(elapsed.Seconds())
	})
}

// ObserveZone implements derived.Observer.
func (Observer) ObserveZone(zone string, result derived.Result, elapsed time.Duration) {
	recordZone(zone, func() {
		zoneEvaluationsTotal.WithLabelValues(zone, result.String()).Inc()
		zoneEvaluationDuration.WithLabelValues(zone).Observe(elapsed.Seconds())
		zoneResult.WithLabelValues(zone).Set(float64(result))
	})
}

// ObserveRegistry implements derived.RegistryObserver.
func (Observer) ObserveRegistry(kind string, zones []string, err error) {
	registryChangesTotal.WithLabelValues(kind, outcome(err)).Inc()
	if err != nil {
		return
	}
	registryZones.Set(float64(len(zones)))
	if kind == "persist" {
		return
	}
	// drop series of zones that no longer exist
	keep := make(map[string]struct{}, len(zones))
	for _, z := range zones {
		keep[z] = struct{}{}
	}
	forgetZones(keep)
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
