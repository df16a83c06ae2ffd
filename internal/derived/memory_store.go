// SPDX-License-Identifier: MIT

package derived

import (
	"context"
	"sync"
)

// MemoryStore is a Store kept in process memory. Saved documents are
// encoded to YAML and decoded again on load, so it behaves like a durable
// store with respect to what survives a round trip.
type MemoryStore struct {
	mu      sync.Mutex
	data    []byte
	saveErr error
	saves   int
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the last saved document.
func (s *MemoryStore) Load(_ context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return Document{}, ErrNoDocument
	}
	return UnmarshalDocument(s.data)
}

// Save stores doc, or returns the error set with FailSaves.
func (s *MemoryStore) Save(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	data, err := MarshalDocument(doc)
	if err != nil {
		return err
	}
	s.data = data
	s.saves++
	return nil
}

// FailSaves makes every following Save return err; nil restores saving.
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// SetRaw replaces the stored bytes, bypassing encoding.
func (s *MemoryStore) SetRaw(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append([]byte(nil), data...)
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
