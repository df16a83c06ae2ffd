// SPDX-License-Identifier: MIT

package derived

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor builds a component from its parameters. It must reject
// malformed parameters with an error rather than deferring the failure to
// derivation time.
type Constructor[V any] func(params Params) (Component[V], error)

// Factory maps component kinds to constructors. Kinds are registered
// explicitly at start-up.
type Factory[V any] struct {
	mu    sync.RWMutex
	kinds map[string]Constructor[V]
}

// NewFactory returns an empty factory.
func NewFactory[V any]() *Factory[V] {
	return &Factory[V]{kinds: make(map[string]Constructor[V])}
}

// Register adds a kind.
func (f *Factory[V]) Register(kind string, ctor Constructor[V]) error {
	if kind == "" || ctor == nil {
		return fmt.Errorf("register kind %q: kind and constructor are required", kind)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.kinds[kind]; ok {
		return fmt.Errorf("%w: %q", ErrKindRegistered, kind)
	}
	f.kinds[kind] = ctor
	return nil
}

// Kinds returns the registered kinds, sorted.
func (f *Factory[V]) Kinds() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, 0, len(f.kinds))
	for k := range f.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Build constructs a fresh component from spec.
func (f *Factory[V]) Build(spec ComponentSpec) (Component[V], error) {
	f.mu.RLock()
	ctor, ok := f.kinds[spec.Kind]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, spec.Kind)
	}
	c, err := ctor(spec.Params.Clone())
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", spec.Kind, err)
	}
	if c == nil || isNil(c) {
		return nil, fmt.Errorf("build %s: %w", spec.Kind, ErrNilComponent)
	}
	return c, nil
}

// BuildZone constructs a zone and all of its components from spec.
func (f *Factory[V]) BuildZone(spec ZoneSpec, opts ...ZoneOption[V]) (*Zone[V], error) {
	components := make([]Component[V], 0, len(spec.Components))
	for i, cs := range spec.Components {
		c, err := f.Build(cs)
		if err != nil {
			return nil, fmt.Errorf("zone %q: components[%d]: %w", spec.Name, i, err)
		}
		components = append(components, c)
	}
	return NewZone(spec.Name, components, opts...)
}

// BuildAll validates doc and constructs all of its zones.
func (f *Factory[V]) BuildAll(doc Document, opts ...ZoneOption[V]) ([]*Zone[V], error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	zones := make([]*Zone[V], 0, len(doc.Zones))
	for _, zs := range doc.Zones {
		z, err := f.BuildZone(zs, opts...)
		if err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// Describe returns the persisted form of zone. Every component must
// implement Describer.
func Describe[V any](zone *Zone[V]) (ZoneSpec, error) {
	spec := ZoneSpec{Name: zone.Name()}
	for i, c := range zone.components {
		d, ok := c.(Describer)
		if !ok {
			return ZoneSpec{}, fmt.Errorf("zone %q: components[%d] (%T): %w", zone.Name(), i, c, ErrNotDescribable)
		}
		cs := d.Describe()
		cs.Params = cs.Params.Clone()
		spec.Components = append(spec.Components, cs)
	}
	return spec, nil
}
