// SPDX-License-Identifier: MIT

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	knownMu    sync.Mutex
	knownZones = map[string]struct{}{}
)

// recordZone runs record under knownMu after marking zone known, so a
// concurrent forgetZones either sees the new series or runs after them.
func recordZone(zone string, record func()) {
	knownMu.Lock()
	defer knownMu.Unlock()
	knownZones[zone] = struct{}{}
	record()
}

func forgetZones(keep map[string]struct{}) {
	knownMu.Lock()
	defer knownMu.Unlock()
	for z := range knownZones {
		if _, ok := keep[z]; ok {
			continue
		}
		zoneResult.DeleteLabelValues(z)
		zoneEvaluationDuration.DeleteLabelValues(z)
		componentDerivationDuration.DeleteLabelValues(z)
		zoneEvaluationsTotal.DeletePartialMatch(prometheus.Labels{"zone": z})
		componentDerivationsTotal.DeletePartialMatch(prometheus.Labels{"zone": z})
	}
	knownZones = keep
}
