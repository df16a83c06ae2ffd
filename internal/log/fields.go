// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"
	FieldEvent     = "event"

	FieldRequestID = "request_id"
	FieldTraceID   = "trace_id"
	FieldPrincipal = "principal"

	FieldZone   = "zone"
	FieldResult = "result"
	FieldKind   = "kind"
	FieldPath   = "path"
)
