// SPDX-License-Identifier: MIT

// Package yamlfile stores the zone document as a YAML file. Writes are
// atomic and durable: a reader never sees a partially written file.
package yamlfile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/google/renameio/v2"
)

// Store is a derived.Store backed by one YAML file.
type Store struct {
	path string

	mu     sync.Mutex
	digest [sha256.Size]byte
	known  bool
}

// New returns a store for path. The parent directory is created on first
// save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path.
func (s *Store) Path() string { return s.path }

// Load reads and strictly decodes the file.
func (s *Store) Load(ctx context.Context) (derived.Document, error) {
	if err := ctx.Err(); err != nil {
		return derived.Document{}, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return derived.Document{}, derived.ErrNoDocument
		}
		return derived.Document{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, err := derived.UnmarshalDocument(data)
	if err != nil {
		return derived.Document{}, fmt.Errorf("%s: %w", s.path, err)
	}
	s.remember(data)
	return doc, nil
}

// Save replaces the file atomically.
func (s *Store) Save(ctx context.Context, doc derived.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := derived.MarshalDocument(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", s.path, err)
	}

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pendingFile, err := renameio.NewPendingFile(s.path, renameio.WithStaticPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write zone document: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomic replace %s: %w", s.path, err)
	}
	s.remember(data)
	return nil
}

// Stale reports whether the file differs from what this store last read or
// wrote. A file the store has never seen is stale.
func (s *Store) Stale() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	sum := sha256.Sum256(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.known || !bytes.Equal(sum[:], s.digest[:]), nil
}

func (s *Store) remember(data []byte) {
	sum := sha256.Sum256(data)
	s.mu.Lock()
	s.digest = sum
	s.known = true
	s.mu.Unlock()
}
