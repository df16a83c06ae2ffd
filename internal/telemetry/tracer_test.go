// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProviderDisabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{ServiceName: "test", ExporterType: "grpc"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProviderInvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "invalid"})
	assert.EqualError(t, err, "unsupported exporter type: invalid (supported: grpc, http)")
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", Sampler(1).Description())
	assert.Equal(t, "AlwaysOffSampler", Sampler(0).Description())
	assert.Contains(t, Sampler(0.5).Description(), "TraceIDRatioBased")
}

func TestProviderExportsSpans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p, err := NewProviderWithExporter(context.Background(),
		Config{Enabled: true, ServiceName: "zonewatch", ServiceVersion: "test", SamplingRate: 1},
		sdktrace.WithSyncer(exp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	_, span := Tracer("test").Start(context.Background(), "derived.zone.evaluate")
	span.SetAttributes(ZoneAttributes("ops", 2)...)
	span.SetAttributes(ResultAttribute("FAILURE"))
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "derived.zone.evaluate", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String(ZoneNameKey, "ops"))
	assert.Contains(t, spans[0].Attributes, attribute.String(ZoneResultKey, "FAILURE"))
}
