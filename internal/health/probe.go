// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/ManuGH/zonewatch/internal/log"
)

// Status represents the overall liveness/readiness status of the process.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// ProbeResult represents the result of a process-level check.
type ProbeResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ProbeResponse is the body of /healthz and /readyz.
type ProbeResponse struct {
	Status    Status                 `json:"status"`
	Ready     bool                   `json:"ready"`
	Version   string                 `json:"version,omitempty"`
	Uptime    int64                  `json:"uptime_seconds"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]ProbeResult `json:"checks,omitempty"`
}

// Prober checks the service process itself, as opposed to the zones it
// serves.
type Prober interface {
	Name() string
	Probe(ctx context.Context) ProbeResult
}

// Probes runs liveness and readiness probes.
type Probes struct {
	version string
	started time.Time
	probers []Prober
}

// NewProbes creates an empty probe set.
func NewProbes(version string) *Probes {
	return &Probes{version: version, started: time.Now()}
}

// Register adds a prober.
func (p *Probes) Register(pr Prober) {
	p.probers = append(p.probers, pr)
}

// Live reports liveness. The process is alive whenever it can answer; probe
// details are only collected when verbose is set.
func (p *Probes) Live(ctx context.Context, verbose bool) ProbeResponse {
	resp := p.base()
	if verbose {
		p.run(ctx, &resp)
	}
	return resp
}

// Ready runs every prober; any unhealthy probe makes the process not ready.
func (p *Probes) Ready(ctx context.Context) ProbeResponse {
	resp := p.base()
	p.run(ctx, &resp)
	return resp
}

func (p *Probes) base() ProbeResponse {
	return ProbeResponse{
		Status:    StatusHealthy,
		Ready:     true,
		Version:   p.version,
		Uptime:    int64(time.Since(p.started).Seconds()),
		Timestamp: time.Now(),
	}
}

func (p *Probes) run(ctx context.Context, resp *ProbeResponse) {
	if len(p.probers) == 0 {
		return
	}
	resp.Checks = make(map[string]ProbeResult, len(p.probers))
	for _, pr := range p.probers {
		result := pr.Probe(ctx)
		resp.Checks[pr.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
			resp.Ready = false
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
}

// ServeLive handles /healthz. It always answers 200.
func (p *Probes) ServeLive(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "probe")
	verbose := r.URL.Query().Get("verbose") == "true"

	resp := p.Live(r.Context(), verbose)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "probe.encode_error").Msg("failed to encode liveness response")
	}
}

// ServeReady handles /readyz: 200 when ready, 503 otherwise.
func (p *Probes) ServeReady(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "probe")

	resp := p.Ready(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if resp.Ready {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("event", "probe.encode_error").Msg("failed to encode readiness response")
	}
	logger.Debug().
		Str("event", "probe.ready_checked").
		Str("status", string(resp.Status)).
		Bool("ready", resp.Ready).
		Msg("readiness probe performed")
}

// StoreProber checks that the zone document store can be read.
type StoreProber struct {
	store derived.Store
}

// NewStoreProber returns a prober for store.
func NewStoreProber(store derived.Store) *StoreProber {
	return &StoreProber{store: store}
}

func (s *StoreProber) Name() string { return "zone_store" }

func (s *StoreProber) Probe(ctx context.Context) ProbeResult {
	doc, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, derived.ErrNoDocument):
		return ProbeResult{Status: StatusHealthy, Message: "no zone document saved yet"}
	case errors.Is(err, derived.ErrCorruptDocument):
		return ProbeResult{Status: StatusDegraded, Message: "zone document is corrupt", Error: err.Error()}
	case err != nil:
		return ProbeResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return ProbeResult{Status: StatusHealthy, Message: plural(len(doc.Zones), "zone") + " stored"}
}

// FileProber checks that a file exists and is readable.
type FileProber struct {
	name string
	path string
}

// NewFileProber creates a prober for file existence. An empty path is
// reported healthy as not configured.
func NewFileProber(name, path string) *FileProber {
	return &FileProber{name: name, path: path}
}

func (f *FileProber) Name() string { return f.name }

func (f *FileProber) Probe(_ context.Context) ProbeResult {
	if f.path == "" {
		return ProbeResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	res, msg := statFile(f.path)
	switch res {
	case derived.Success:
		return ProbeResult{Status: StatusHealthy, Message: msg}
	case derived.Unstable:
		return ProbeResult{Status: StatusDegraded, Message: msg}
	default:
		return ProbeResult{Status: StatusUnhealthy, Error: msg, Message: f.path}
	}
}

// ReloadProber reports the outcome of the last out-of-band reload.
type ReloadProber struct {
	last func() (time.Time, error)
}

// NewReloadProber returns a prober reading the last reload from last.
func NewReloadProber(last func() (time.Time, error)) *ReloadProber {
	return &ReloadProber{last: last}
}

func (r *ReloadProber) Name() string { return "zone_reload" }

func (r *ReloadProber) Probe(_ context.Context) ProbeResult {
	at, err := r.last()
	if at.IsZero() {
		return ProbeResult{Status: StatusHealthy, Message: "no reload yet"}
	}
	if err != nil {
		return ProbeResult{Status: StatusDegraded, Message: "last reload failed, serving previous zones", Error: err.Error()}
	}
	return ProbeResult{Status: StatusHealthy, Message: "last reload at " + at.UTC().Format(time.RFC3339)}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
