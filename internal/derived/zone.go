// SPDX-License-Identifier: MIT

package derived

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/zonewatch/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ManuGH/zonewatch/internal/derived"

// Observer receives timing and outcome of derivations.
type Observer interface {
	ObserveComponent(zone, key string, result Result, elapsed time.Duration)
	ObserveZone(zone string, result Result, elapsed time.Duration)
}

// Zone is a named, ordered, immutable collection of components.
type Zone[V any] struct {
	name         string
	components   []Component[V]
	namer        Namer[V]
	timeout      time.Duration
	failureValue func(error) V
	observer     Observer
	tracer       trace.Tracer
}

// ZoneOption configures a Zone.
type ZoneOption[V any] func(*Zone[V])

// WithNamer sets the function computing each component's display key.
func WithNamer[V any](n Namer[V]) ZoneOption[V] {
	return func(z *Zone[V]) {
		if n != nil {
			z.namer = n
		}
	}
}

// WithComponentTimeout bounds each derivation. A component that has not
// returned when d elapses is reported as Failure and the zone moves on.
func WithComponentTimeout[V any](d time.Duration) ZoneOption[V] {
	return func(z *Zone[V]) { z.timeout = d }
}

// WithFailureValue sets how the value of a synthetic Failure report (timeout,
// panic, missing report) is built from its cause. fn must not return a nil
// reference. Without it a zone stores the cause itself when V can hold a
// string or an error, and NewZone fails otherwise.
func WithFailureValue[V any](fn func(error) V) ZoneOption[V] {
	return func(z *Zone[V]) { z.failureValue = fn }
}

// WithObserver attaches an Observer.
func WithObserver[V any](o Observer) ZoneOption[V] {
	return func(z *Zone[V]) { z.observer = o }
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer[V any](t trace.Tracer) ZoneOption[V] {
	return func(z *Zone[V]) {
		if t != nil {
			z.tracer = t
		}
	}
}

// NewZone creates a zone holding a copy of components.
func NewZone[V any](name string, components []Component[V], opts ...ZoneOption[V]) (*Zone[V], error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyZoneName
	}
	for i, c := range components {
		if c == nil || isNil(c) {
			return nil, fmt.Errorf("zone %q: components[%d]: %w", name, i, ErrNilComponent)
		}
	}
	z := &Zone[V]{
		name:       name,
		components: append([]Component[V](nil), components...),
		namer:      DefaultName[V],
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(z)
	}
	if z.failureValue == nil {
		fn, ok := defaultFailureValue[V]()
		if !ok {
			return nil, fmt.Errorf("zone %q: %w", name, ErrNoFailureValue)
		}
		z.failureValue = fn
	} else if isNil(z.failureValue(errFailureSample)) {
		return nil, fmt.Errorf("zone %q: failure value function returned nil: %w", name, ErrNoFailureValue)
	}
	return z, nil
}

var errFailureSample = errors.New("derivation failed")

// defaultFailureValue keeps the cause of a synthetic failure as its value.
func defaultFailureValue[V any]() (func(error) V, bool) {
	if _, ok := any("").(V); ok {
		return func(err error) V { return any(err.Error()).(V) }, true
	}
	if _, ok := any(ErrNilValue).(V); ok {
		return func(err error) V { return any(err).(V) }, true
	}
	return nil, false
}

// Name returns the zone's name.
func (z *Zone[V]) Name() string { return z.name }

// Components returns a copy of the zone's components in order.
func (z *Zone[V]) Components() []Component[V] {
	return append([]Component[V](nil), z.components...)
}

// Reports derives every component in order, keyed by display name.
func (z *Zone[V]) Reports(ctx context.Context) *Reports[V] {
	rs, _ := z.Evaluate(ctx)
	return rs
}

// CombinedReport derives every component and merges the reports with Combine.
func (z *Zone[V]) CombinedReport(ctx context.Context) Report[string] {
	_, combined := z.Evaluate(ctx)
	return combined
}

// CombinedResult returns only the result of CombinedReport.
func (z *Zone[V]) CombinedResult(ctx context.Context) Result {
	return z.CombinedReport(ctx).Result()
}

// Evaluate derives every component once and returns both the per-component
// reports and their combination, so callers rendering both see one
// consistent derivation.
func (z *Zone[V]) Evaluate(ctx context.Context) (*Reports[V], Report[string]) {
	start := time.Now()
	ctx, span := z.tracer.Start(ctx, "derived.zone.evaluate",
		trace.WithAttributes(telemetry.ZoneAttributes(z.name, len(z.components))...))
	defer span.End()

	rs := NewReports[V]()
	for _, c := range z.components {
		key := z.namer(c)
		rs.Put(key, z.derive(ctx, key, c))
	}
	combined := Combine(rs)

	span.SetAttributes(telemetry.ResultAttribute(combined.Result().String()))
	if combined.Result().IsWorseThan(Success) {
		span.SetStatus(codes.Error, combined.Result().String())
	}
	if z.observer != nil {
		z.observer.ObserveZone(z.name, combined.Result(), time.Since(start))
	}
	return rs, combined
}

func (z *Zone[V]) derive(ctx context.Context, key string, c Component[V]) (rep Report[V]) {
	start := time.Now()
	defer func() {
		if z.observer != nil {
			z.observer.ObserveComponent(z.name, key, rep.Result(), time.Since(start))
		}
	}()

	if z.timeout <= 0 {
		return z.guard(ctx, c)
	}

	cctx, cancel := context.WithTimeout(ctx, z.timeout)
	defer cancel()

	done := make(chan Report[V], 1)
	go func() { done <- z.guard(cctx, c) }()

	select {
	case r := <-done:
		return r
	case <-cctx.Done():
		return z.failure(fmt.Errorf("derivation of %q did not finish: %w", key, cctx.Err()))
	}
}

// guard turns a panic or an unconstructed report into a Failure report.
func (z *Zone[V]) guard(ctx context.Context, c Component[V]) (rep Report[V]) {
	defer func() {
		if p := recover(); p != nil {
			rep = z.failure(fmt.Errorf("derivation panicked: %v", p))
		}
	}()
	rep = c.PerformDerivation(ctx)
	if rep.IsZero() {
		rep = z.failure(errors.New("component returned no report"))
	}
	return rep
}

func (z *Zone[V]) failure(err error) Report[V] {
	return Report[V]{result: Failure, value: z.failureValue(err)}
}
