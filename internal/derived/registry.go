// SPDX-License-Identifier: MIT

package derived

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	xglog "github.com/ManuGH/zonewatch/internal/log"
	"github.com/rs/zerolog"
)

// Store loads and saves the zone document. Load returns ErrNoDocument when
// nothing has been saved yet and an error wrapping ErrCorruptDocument when
// the stored bytes cannot be decoded.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// RegistryObserver is told about every attempt to change or persist the
// mapping. kind is "replace", "reload" or "persist"; zones lists the zone
// names in effect after the attempt.
type RegistryObserver interface {
	ObserveRegistry(kind string, zones []string, err error)
}

// Registry owns the mapping from zone name to zone. Readers see an immutable
// snapshot; writers are serialized and publish a new snapshot only after it
// has been persisted.
type Registry[V any] struct {
	store    Store
	factory  *Factory[V]
	zoneOpts []ZoneOption[V]
	logger   zerolog.Logger
	observer RegistryObserver

	mu      sync.Mutex
	current atomic.Pointer[snapshot[V]]
}

type snapshot[V any] struct {
	zones  []*Zone[V]
	byName map[string]*Zone[V]
	doc    Document
}

// RegistryOption configures a Registry.
type RegistryOption[V any] func(*Registry[V])

// WithZoneOptions sets the options applied to every zone the registry builds
// from a document.
func WithZoneOptions[V any](opts ...ZoneOption[V]) RegistryOption[V] {
	return func(r *Registry[V]) { r.zoneOpts = append(r.zoneOpts, opts...) }
}

// WithLogger overrides the registry logger.
func WithLogger[V any](l zerolog.Logger) RegistryOption[V] {
	return func(r *Registry[V]) { r.logger = l }
}

// WithRegistryObserver attaches a RegistryObserver.
func WithRegistryObserver[V any](o RegistryObserver) RegistryOption[V] {
	return func(r *Registry[V]) { r.observer = o }
}

// NewRegistry creates a registry and loads the persisted document from
// store. A missing document leaves the registry empty. A corrupt document is
// logged and also leaves it empty; any other load failure is returned, as is
// a document naming a kind the factory cannot build.
func NewRegistry[V any](ctx context.Context, store Store, factory *Factory[V], opts ...RegistryOption[V]) (*Registry[V], error) {
	if store == nil {
		return nil, errors.New("registry: store is required")
	}
	if factory == nil {
		return nil, errors.New("registry: factory is required")
	}
	r := &Registry[V]{
		store:   store,
		factory: factory,
		logger:  xglog.WithComponent("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}

	empty, _ := r.newSnapshot(nil)
	r.current.Store(empty)

	doc, err := store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoDocument):
		r.logger.Info().Str("event", "registry.empty").Msg("no persisted zone document, starting empty")
		return r, nil
	case errors.Is(err, ErrCorruptDocument):
		r.logger.Error().Err(err).Str("event", "registry.corrupt").Msg("persisted zone document is corrupt, starting empty")
		return r, nil
	case err != nil:
		return nil, fmt.Errorf("load zone document: %w", err)
	}

	zones, err := factory.BuildAll(doc, r.zoneOpts...)
	if err != nil {
		return nil, fmt.Errorf("build zones from persisted document: %w", err)
	}
	snap, err := r.newSnapshot(zones)
	if err != nil {
		return nil, err
	}
	r.current.Store(snap)
	r.observe("reload", nil)
	r.logger.Info().
		Str("event", "registry.loaded").
		Int("zones", len(zones)).
		Msg("loaded persisted zones")
	return r, nil
}

// Zone returns the zone named name.
func (r *Registry[V]) Zone(name string) (*Zone[V], bool) {
	z, ok := r.current.Load().byName[name]
	return z, ok
}

// Zones returns the zones in configured order.
func (r *Registry[V]) Zones() []*Zone[V] {
	return append([]*Zone[V](nil), r.current.Load().zones...)
}

// Len returns the number of zones.
func (r *Registry[V]) Len() int {
	return len(r.current.Load().zones)
}

// Document returns the persisted form of the current mapping.
func (r *Registry[V]) Document() Document {
	return cloneDocument(r.current.Load().doc)
}

// Kinds returns the kinds the registry's factory can build.
func (r *Registry[V]) Kinds() []string {
	return r.factory.Kinds()
}

// ReplaceAll discards the current mapping and replaces it with zones. Zone
// names must be unique and a component instance may belong to one zone only. The new mapping is persisted before it becomes
// visible; if persisting fails a *PersistError is returned and the old
// mapping stays in place both in memory and in the store.
func (r *Registry[V]) ReplaceAll(ctx context.Context, zones []*Zone[V]) error {
	next, err := r.newSnapshot(zones)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Save(ctx, next.doc); err != nil {
		r.logger.Error().
			Err(err).
			Str("event", "registry.persist_failed").
			Strs("zones", next.doc.Names()).
			Msg("failed to persist zone document, keeping previous mapping")
		r.observe("replace", err)
		return &PersistError{Op: "save zone document", Err: err}
	}

	r.current.Store(next)
	r.observe("replace", nil)
	r.logger.Info().
		Str("event", "registry.replaced").
		Strs("zones", next.doc.Names()).
		Msg("zone mapping replaced")
	return nil
}

// Apply builds fresh zones from doc and replaces the mapping with them.
func (r *Registry[V]) Apply(ctx context.Context, doc Document) error {
	zones, err := r.factory.BuildAll(doc, r.zoneOpts...)
	if err != nil {
		return err
	}
	return r.ReplaceAll(ctx, zones)
}

// Persist writes the current mapping to the store again.
func (r *Registry[V]) Persist(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc := r.current.Load().doc
	if err := r.store.Save(ctx, doc); err != nil {
		r.logger.Error().Err(err).Str("event", "registry.persist_failed").Msg("failed to persist zone document")
		r.observe("persist", err)
		return &PersistError{Op: "save zone document", Err: err}
	}
	r.observe("persist", nil)
	r.logger.Info().Str("event", "registry.persisted").Int("zones", len(doc.Zones)).Msg("zone document persisted")
	return nil
}

// Reload re-reads the store and publishes its mapping without writing it
// back. On any failure the current mapping is kept.
func (r *Registry[V]) Reload(ctx context.Context) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() { r.observe("reload", err) }()

	doc, err := r.store.Load(ctx)
	if errors.Is(err, ErrNoDocument) {
		doc, err = Document{Version: DocumentVersion}, nil
	}
	if err != nil {
		return fmt.Errorf("reload zone document: %w", err)
	}
	zones, err := r.factory.BuildAll(doc, r.zoneOpts...)
	if err != nil {
		return fmt.Errorf("reload zone document: %w", err)
	}
	next, err := r.newSnapshot(zones)
	if err != nil {
		return fmt.Errorf("reload zone document: %w", err)
	}
	r.current.Store(next)
	r.logger.Info().
		Str("event", "registry.reloaded").
		Strs("zones", next.doc.Names()).
		Msg("zone mapping reloaded from store")
	return nil
}

func (r *Registry[V]) observe(kind string, err error) {
	if r.observer != nil {
		r.observer.ObserveRegistry(kind, r.current.Load().doc.Names(), err)
	}
}

func (r *Registry[V]) newSnapshot(zones []*Zone[V]) (*snapshot[V], error) {
	snap := &snapshot[V]{
		zones:  make([]*Zone[V], 0, len(zones)),
		byName: make(map[string]*Zone[V], len(zones)),
		doc:    Document{Version: DocumentVersion, Zones: make([]ZoneSpec, 0, len(zones))},
	}
	owner := map[uintptr]string{}
	for i, z := range zones {
		if z == nil {
			return nil, fmt.Errorf("zones[%d]: zone is nil", i)
		}
		if _, dup := snap.byName[z.Name()]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateZone, z.Name())
		}
		for _, c := range z.components {
			id, ok := instanceID(c)
			if !ok {
				continue
			}
			if prev, seen := owner[id]; seen && prev != z.Name() {
				return nil, fmt.Errorf("%w: %q in zones %q and %q", ErrSharedComponent, z.namer(c), prev, z.Name())
			}
			owner[id] = z.Name()
		}
		spec, err := Describe(z)
		if err != nil {
			return nil, err
		}
		snap.zones = append(snap.zones, z)
		snap.byName[z.Name()] = z
		snap.doc.Zones = append(snap.doc.Zones, spec)
	}
	return snap, nil
}

// instanceID identifies components held by pointer. Other kinds are copied
// on assignment and cannot be shared; pointers to zero-size values may
// alias and are skipped.
func instanceID(c any) (uintptr, bool) {
	rv := reflect.ValueOf(c)
	if rv.Kind() != reflect.Pointer || rv.Type().Elem().Size() == 0 {
		return 0, false
	}
	return rv.Pointer(), true
}

func cloneDocument(d Document) Document {
	out := Document{Version: d.Version, Zones: make([]ZoneSpec, 0, len(d.Zones))}
	for _, z := range d.Zones {
		zs := ZoneSpec{Name: z.Name}
		for _, c := range z.Components {
			zs.Components = append(zs.Components, ComponentSpec{Kind: c.Kind, Params: c.Params.Clone()})
		}
		out.Zones = append(out.Zones, zs)
	}
	return out
}
