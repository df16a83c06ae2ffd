// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by every span the service creates.
const (
	HTTPRouteKey = "http.route"

	ZoneNameKey       = "zone.name"
	ZoneComponentsKey = "zone.components"
	ZoneResultKey     = "zone.result"

	StoreBackendKey = "store.backend"
	StoreZonesKey   = "store.zones"

	PrincipalKey = "auth.principal"
)

// ZoneAttributes describes a zone evaluation.
func ZoneAttributes(name string, components int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ZoneNameKey, name),
		attribute.Int(ZoneComponentsKey, components),
	}
}

// ResultAttribute records a combined result.
func ResultAttribute(result string) attribute.KeyValue {
	return attribute.String(ZoneResultKey, result)
}

// StoreAttributes describes a store operation.
func StoreAttributes(backend string) []attribute.KeyValue {
	return []attribute.KeyValue{attribute.String(StoreBackendKey, backend)}
}
