// SPDX-License-Identifier: MIT

// Package persistence opens the zone document store selected by
// configuration and instruments it.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/metrics"
	"github.com/ManuGH/zonewatch/internal/persistence/badgerstore"
	"github.com/ManuGH/zonewatch/internal/persistence/redisstore"
	"github.com/ManuGH/zonewatch/internal/persistence/sqlite"
	"github.com/ManuGH/zonewatch/internal/persistence/yamlfile"
	"github.com/ManuGH/zonewatch/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown store backend")

// Backends lists the supported backend names.
func Backends() []string {
	return []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis, BackendBadger}
}

// Config selects and configures a backend. Path is the document file for
// "file", the database file for "sqlite" and the data directory for
// "badger" (empty runs badger in memory).
type Config struct {
	Backend       string
	Path          string
	SQLite        sqlite.Config
	Redis         redisstore.Config
	BadgerHistory int
}

// Watcher is implemented by backends that announce changes made by other
// processes.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Handle is an open store.
type Handle struct {
	// Store is the instrumented store handed to the registry.
	Store   derived.Store
	Backend string

	raw   derived.Store
	path  string
	close func() error
}

// Open opens the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*Handle, error) {
	h := &Handle{Backend: cfg.Backend, close: func() error { return nil }}
	switch cfg.Backend {
	case BackendMemory, "":
		h.Backend = BackendMemory
		h.raw = derived.NewMemoryStore()
	case BackendFile:
		if cfg.Path == "" {
			return nil, errors.New("file store: path is required")
		}
		h.raw = yamlfile.New(cfg.Path)
		h.path = cfg.Path
	case BackendSQLite:
		if cfg.Path == "" {
			return nil, errors.New("sqlite store: path is required")
		}
		sc := cfg.SQLite
		if sc == (sqlite.Config{}) {
			sc = sqlite.DefaultConfig()
		}
		s, err := sqlite.New(ctx, cfg.Path, sc)
		if err != nil {
			return nil, err
		}
		h.raw, h.close = s, s.Close
	case BackendRedis:
		s, err := redisstore.New(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		h.raw, h.close = s, s.Close
	case BackendBadger:
		var (
			s   *badgerstore.Store
			err error
		)
		if cfg.Path == "" {
			s, err = badgerstore.OpenInMemory(cfg.BadgerHistory)
		} else {
			s, err = badgerstore.Open(cfg.Path, cfg.BadgerHistory)
		}
		if err != nil {
			return nil, err
		}
		h.raw, h.close = s, s.Close
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	h.Store = Instrument(h.Backend, h.raw)
	logger.Info().
		Str("event", "store.opened").
		Str("backend", h.Backend).
		Str("path", cfg.Path).
		Msg("zone document store opened")
	return h, nil
}

// Close releases the backend.
func (h *Handle) Close() error { return h.close() }

// Path returns the document file watched for out-of-band edits; empty for
// backends other than "file".
func (h *Handle) Path() string { return h.path }

// Watcher returns the backend's change feed, if it has one.
func (h *Handle) Watcher() (Watcher, bool) {
	w, ok := h.raw.(Watcher)
	return w, ok
}

// Stale reports whether the backing file changed since this process last
// read or wrote it. Backends without that notion are never stale.
func (h *Handle) Stale() (bool, error) {
	if s, ok := h.raw.(interface{ Stale() (bool, error) }); ok {
		return s.Stale()
	}
	return false, nil
}

// Raw returns the uninstrumented store.
func (h *Handle) Raw() derived.Store { return h.raw }

const tracerName = "github.com/ManuGH/zonewatch/internal/persistence"

type instrumented struct {
	backend string
	next    derived.Store
	tracer  trace.Tracer
}

// Instrument wraps s so every operation is traced and recorded in metrics.
func Instrument(backend string, s derived.Store) derived.Store {
	return &instrumented{backend: backend, next: s, tracer: otel.Tracer(tracerName)}
}

func (s *instrumented) Load(ctx context.Context) (derived.Document, error) {
	ctx, span := s.start(ctx, "load")
	defer span.End()
	start := time.Now()
	doc, err := s.next.Load(ctx)
	s.finish(span, "load", err, start)
	return doc, err
}

func (s *instrumented) Save(ctx context.Context, doc derived.Document) error {
	ctx, span := s.start(ctx, "save")
	defer span.End()
	span.SetAttributes(attribute.Int(telemetry.StoreZonesKey, len(doc.Zones)))
	start := time.Now()
	err := s.next.Save(ctx, doc)
	s.finish(span, "save", err, start)
	return err
}

func (s *instrumented) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "store."+op, trace.WithAttributes(telemetry.StoreAttributes(s.backend)...))
}

func (s *instrumented) finish(span trace.Span, op string, err error, start time.Time) {
	// an empty store is a normal outcome
	if errors.Is(err, derived.ErrNoDocument) {
		err = nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.RecordStoreOp(s.backend, op, err, time.Since(start))
}
