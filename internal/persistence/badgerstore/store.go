// SPDX-License-Identifier: MIT

// Package badgerstore keeps the zone document in an embedded Badger
// database. Each save also appends the document to a bounded history so an
// operator can inspect what a bad submission replaced.
package badgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/zonewatch/internal/derived"
	"github.com/dgraph-io/badger/v4"
)

var (
	currentKey    = []byte("zones/current")
	historyPrefix = []byte("zones/history/")
)

// DefaultHistory is the number of previous documents kept.
const DefaultHistory = 10

// Store is a derived.Store backed by Badger.
type Store struct {
	db      *badger.DB
	history int

	mu   sync.Mutex
	last uint64
}

// Open opens (creating if needed) the database in dir.
func Open(dir string, history int) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", dir, err)
	}
	if history < 0 {
		history = 0
	}
	return &Store{db: db, history: history}, nil
}

// OpenInMemory opens a database that lives only in memory.
func OpenInMemory(history int) (*Store, error) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("badger: open in-memory: %w", err)
	}
	return &Store{db: db, history: history}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Load reads the current document.
func (s *Store) Load(_ context.Context) (derived.Document, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(currentKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return derived.Document{}, derived.ErrNoDocument
	}
	if err != nil {
		return derived.Document{}, fmt.Errorf("badger: read document: %w", err)
	}
	return derived.UnmarshalDocument(data)
}

// Save replaces the current document and records it in the history.
func (s *Store) Save(_ context.Context, doc derived.Document) error {
	data, err := derived.MarshalDocument(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(currentKey, data); err != nil {
			return err
		}
		if s.history == 0 {
			return nil
		}
		if err := txn.Set(s.nextHistoryKey(), data); err != nil {
			return err
		}
		return s.trimHistory(txn)
	})
	if err != nil {
		return fmt.Errorf("badger: write document: %w", err)
	}
	return nil
}

// History returns up to the configured number of previously saved
// documents, newest first.
func (s *Store) History() ([]derived.Document, error) {
	var out []derived.Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = historyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), historyPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(historyPrefix); it.Next() {
			var doc derived.Document
			err := it.Item().Value(func(val []byte) error {
				var derr error
				doc, derr = derived.UnmarshalDocument(val)
				return derr
			})
			if err != nil {
				return err
			}
			out = append(out, doc)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: read history: %w", err)
	}
	return out, nil
}

func (s *Store) trimHistory(txn *badger.Txn) error {
	// the iterator must be closed before the transaction is modified
	stale := func() [][]byte {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		opts.Prefix = historyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		var keys [][]byte
		n := 0
		seek := append(append([]byte(nil), historyPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(historyPrefix); it.Next() {
			n++
			if n > s.history {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
		}
		return keys
	}()
	for _, k := range stale {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// nextHistoryKey returns a key ordered after every earlier one, even when
// the clock does not advance between saves. Callers hold s.mu.
func (s *Store) nextHistoryKey() []byte {
	ts := uint64(time.Now().UnixNano())
	if ts <= s.last {
		ts = s.last + 1
	}
	s.last = ts
	k := make([]byte, len(historyPrefix)+8)
	copy(k, historyPrefix)
	binary.BigEndian.PutUint64(k[len(historyPrefix):], ts)
	return k
}
