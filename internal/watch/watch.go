// SPDX-License-Identifier: MIT

// Package watch reloads the zone registry when its document changes outside
// this process, either by an edit of the document file or by another
// instance announcing a save.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/zonewatch/internal/log"
	"github.com/ManuGH/zonewatch/internal/metrics"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultDebounce collapses the bursts of events editors and atomic
// renames produce.
const DefaultDebounce = 500 * time.Millisecond

// Feed announcements beyond FollowBurst are paced to one per
// DefaultFollowInterval.
const (
	DefaultFollowInterval = 250 * time.Millisecond
	FollowBurst           = 5
)

// Reloader re-reads persisted state. *derived.Registry satisfies it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Feed announces changes made elsewhere.
type Feed interface {
	Watch(ctx context.Context, onChange func()) error
}

// Tracker runs reloads and remembers the outcome of the last one.
type Tracker struct {
	reloader     Reloader
	logger       zerolog.Logger
	followPacing time.Duration

	mu      sync.Mutex
	last    time.Time
	lastErr error
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithFollowInterval overrides DefaultFollowInterval.
func WithFollowInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.followPacing = d }
}

// NewTracker returns a Tracker reloading r.
func NewTracker(r Reloader, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		reloader:     r,
		logger:       xglog.WithComponent("watch"),
		followPacing: DefaultFollowInterval,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LastReload returns the time and error of the last reload. The time is zero
// before the first one.
func (t *Tracker) LastReload() (time.Time, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.lastErr
}

// Reload reloads now, attributing the reload to source.
func (t *Tracker) Reload(ctx context.Context, source string) error {
	err := t.reloader.Reload(ctx)
	metrics.RecordReload(source, err)

	t.mu.Lock()
	t.last, t.lastErr = time.Now(), err
	t.mu.Unlock()

	if err != nil {
		t.logger.Error().
			Err(err).
			Str("event", "watch.reload_failed").
			Str("source", source).
			Msg("reload failed, keeping current zones")
		return err
	}
	t.logger.Info().
		Str("event", "watch.reloaded").
		Str("source", source).
		Msg("zones reloaded")
	return nil
}

// Follow reloads on every announcement of feed until ctx is done. A burst
// of announcements is paced rather than dropped.
func (t *Tracker) Follow(ctx context.Context, feed Feed, source string) error {
	limit := rate.Inf
	if t.followPacing > 0 {
		limit = rate.Every(t.followPacing)
	}
	lim := rate.NewLimiter(limit, FollowBurst)
	return feed.Watch(ctx, func() {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		_ = t.Reload(ctx, source)
	})
}

// FileWatcher reloads when a document file changes on disk.
type FileWatcher struct {
	path     string
	tracker  *Tracker
	debounce time.Duration
	stale    func() (bool, error)
	logger   zerolog.Logger
}

// Option configures a FileWatcher.
type Option func(*FileWatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *FileWatcher) { w.debounce = d }
}

// WithStaleCheck skips reloads when fn reports the file unchanged since this
// process last read or wrote it.
func WithStaleCheck(fn func() (bool, error)) Option {
	return func(w *FileWatcher) { w.stale = fn }
}

// NewFileWatcher watches path and reloads through t.
func NewFileWatcher(path string, t *Tracker, opts ...Option) *FileWatcher {
	w := &FileWatcher{
		path:     path,
		tracker:  t,
		debounce: DefaultDebounce,
		logger:   xglog.WithComponent("watch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is done. The parent directory is watched because
// atomic saves replace the file rather than write to it.
func (w *FileWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info().
		Str("event", "watch.started").
		Str("path", w.path).
		Msg("watching zone document for changes")

	target := filepath.Clean(w.path)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str("event", "watch.stopped").Msg("zone document watcher stopped")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug().
				Str("event", "watch.file_changed").
				Str("op", ev.Op.String()).
				Msg("zone document changed")
			timer.Reset(w.debounce)

		case <-timer.C:
			if w.stale != nil {
				stale, err := w.stale()
				if err == nil && !stale {
					w.logger.Debug().Str("event", "watch.own_write").Msg("change matches last save, skipping reload")
					continue
				}
			}
			_ = w.tracker.Reload(ctx, "file")

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().
				Err(err).
				Str("event", "watch.error").
				Msg("file watcher error")
		}
	}
}
