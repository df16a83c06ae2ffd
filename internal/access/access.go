// SPDX-License-Identifier: MIT

// Package access is the permission-gated read and admin path over a zone
// registry. Every operation checks the caller's scope before it reads any
// state, so a denied caller learns nothing about which zones exist.
package access

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ManuGH/zonewatch/internal/auth"
	"github.com/ManuGH/zonewatch/internal/derived"
	xglog "github.com/ManuGH/zonewatch/internal/log"
	"github.com/ManuGH/zonewatch/internal/metrics"
	"github.com/rs/zerolog"
)

var (
	// ErrAccessDenied is returned when the caller lacks the required scope.
	ErrAccessDenied = errors.New("access denied")

	// ErrZoneNotFound is returned for a zone name with no zone.
	ErrZoneNotFound = errors.New("zone not found")
)

// ZoneRegistry is the registry surface the access layer needs.
type ZoneRegistry[V any] interface {
	Zone(name string) (*derived.Zone[V], bool)
	Zones() []*derived.Zone[V]
	Document() derived.Document
	Apply(ctx context.Context, doc derived.Document) error
	Persist(ctx context.Context) error
	Kinds() []string
}

// Service gates a ZoneRegistry behind read and admin scopes.
type Service[V any] struct {
	reg        ZoneRegistry[V]
	readScope  auth.Scope
	adminScope auth.Scope
	logger     zerolog.Logger
}

// Option configures a Service.
type Option[V any] func(*Service[V])

// WithReadScope sets the scope required to read zones. The empty scope
// disables the read check.
func WithReadScope[V any](s auth.Scope) Option[V] {
	return func(svc *Service[V]) { svc.readScope = s }
}

// WithAdminScope sets the scope required for configuration changes.
func WithAdminScope[V any](s auth.Scope) Option[V] {
	return func(svc *Service[V]) {
		if s != "" {
			svc.adminScope = s
		}
	}
}

// WithLogger overrides the service logger.
func WithLogger[V any](l zerolog.Logger) Option[V] {
	return func(svc *Service[V]) { svc.logger = l }
}

// NewService returns a Service over reg. By default reading requires
// health:check and administration requires health:admin.
func NewService[V any](reg ZoneRegistry[V], opts ...Option[V]) *Service[V] {
	s := &Service[V]{
		reg:        reg,
		readScope:  auth.ScopeHealthCheck,
		adminScope: auth.ScopeHealthAdmin,
		logger:     xglog.WithComponent("access"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Response is the outcome of querying a zone.
type Response[V any] struct {
	Zone     string
	Reports  *derived.Reports[V]
	Combined derived.Report[string]
	// Degraded is set when the combined result is worse than Success.
	Degraded bool
	// Status is the HTTP status a view should answer with.
	Status int
	// Message is the plain-text body of a degraded answer.
	Message string
}

// DegradedMessage renders the body sent instead of a view when a zone is
// degraded.
func DegradedMessage(zone string, combined derived.Report[string]) string {
	return fmt.Sprintf("Zone '%s' is %s:\n%s", zone, combined.Result(), combined.Value())
}

// Visible reports whether navigation to the zones should be shown to p.
func (s *Service[V]) Visible(p *auth.Principal) bool {
	return p.Can(s.readScope)
}

// LookupZone returns the zone called name.
func (s *Service[V]) LookupZone(ctx context.Context, p *auth.Principal, name string) (*derived.Zone[V], error) {
	if err := s.authorize(ctx, p, s.readScope, "lookup"); err != nil {
		return nil, err
	}
	z, ok := s.reg.Zone(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrZoneNotFound, name)
	}
	return z, nil
}

// ListZones returns all zones in configured order.
func (s *Service[V]) ListZones(ctx context.Context, p *auth.Principal) ([]*derived.Zone[V], error) {
	if err := s.authorize(ctx, p, s.readScope, "list"); err != nil {
		return nil, err
	}
	return s.reg.Zones(), nil
}

// QueryAggregate derives the zone called name once and returns its reports
// together with their combination.
func (s *Service[V]) QueryAggregate(ctx context.Context, p *auth.Principal, name string) (Response[V], error) {
	z, err := s.LookupZone(ctx, p, name)
	if err != nil {
		return Response[V]{}, err
	}
	reports, combined := z.Evaluate(ctx)
	resp := Response[V]{
		Zone:     z.Name(),
		Reports:  reports,
		Combined: combined,
		Status:   http.StatusOK,
	}
	if !combined.Result().IsBetterOrEqualTo(derived.Success) {
		resp.Degraded = true
		resp.Status = http.StatusServiceUnavailable
		resp.Message = DegradedMessage(z.Name(), combined)
		logger := xglog.WithContext(ctx, s.logger)
		logger.Info().
			Str(xglog.FieldEvent, "zone.degraded").
			Str(xglog.FieldZone, z.Name()).
			Str(xglog.FieldResult, combined.Result().String()).
			Msg("zone queried in degraded state")
	}
	return resp, nil
}

// Config returns the current zone document.
func (s *Service[V]) Config(ctx context.Context, p *auth.Principal) (derived.Document, error) {
	if err := s.authorize(ctx, p, s.adminScope, "config"); err != nil {
		return derived.Document{}, err
	}
	return s.reg.Document(), nil
}

// SubmitConfig replaces every zone with the zones of doc and persists them.
// A *derived.PersistError leaves the previous zones in place.
func (s *Service[V]) SubmitConfig(ctx context.Context, p *auth.Principal, doc derived.Document) error {
	if err := s.authorize(ctx, p, s.adminScope, "submit"); err != nil {
		return err
	}
	if err := s.reg.Apply(ctx, doc); err != nil {
		return err
	}
	logger := xglog.WithContext(ctx, s.logger)
	logger.Info().
		Str(xglog.FieldEvent, "config.submitted").
		Strs("zones", doc.Names()).
		Msg("zone configuration replaced")
	return nil
}

// Persist writes the current zones to the store again.
func (s *Service[V]) Persist(ctx context.Context, p *auth.Principal) error {
	if err := s.authorize(ctx, p, s.adminScope, "persist"); err != nil {
		return err
	}
	return s.reg.Persist(ctx)
}

// CheckAdmin fails with ErrAccessDenied unless p may change the
// configuration. Callers use it to refuse a submission before reading its
// body.
func (s *Service[V]) CheckAdmin(ctx context.Context, p *auth.Principal) error {
	return s.authorize(ctx, p, s.adminScope, "submit")
}

// Kinds lists the component kinds that may appear in a submitted document.
func (s *Service[V]) Kinds(ctx context.Context, p *auth.Principal) ([]string, error) {
	if err := s.authorize(ctx, p, s.adminScope, "kinds"); err != nil {
		return nil, err
	}
	return s.reg.Kinds(), nil
}

func (s *Service[V]) authorize(ctx context.Context, p *auth.Principal, scope auth.Scope, op string) error {
	if p.Can(scope) {
		return nil
	}
	caller := "none"
	if p != nil {
		caller = p.ID
	}
	logger := xglog.WithContext(ctx, s.logger)
	logger.Warn().
		Str(xglog.FieldEvent, "access.denied").
		Str("caller", caller).
		Str("operation", op).
		Str("required_scope", string(scope)).
		Msg("insufficient scope")
	metrics.IncAccessDenied(op)
	return ErrAccessDenied
}
