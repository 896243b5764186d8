// Package memory provides an in-process storage.Store for tests and dev servers.
package memory

import (
	"context"
	"sync"

	"github.com/cory-johannsen/fiefdom/internal/storage"
)

type entry struct {
	version int64
	data    []byte
}

// Store is a versioned map guarded by a mutex.
// Versions come from one counter so a deleted and recreated key never
// repeats a version.
type Store struct {
	mu    sync.Mutex
	clock int64
	docs  map[string]entry
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]entry)}
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, key string) (storage.Document, error) {
	if err := ctx.Err(); err != nil {
		return storage.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.docs[key]
	if !ok {
		return storage.Document{}, storage.ErrNotFound
	}
	return storage.Document{Key: key, Version: e.version, Data: clone(e.data)}, nil
}

// Write implements storage.Store.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, data)
	return nil
}

// Commit implements storage.Store.
func (s *Store) Commit(ctx context.Context, reads map[string]int64, writes map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, want := range reads {
		if s.docs[key].version != want {
			return storage.ErrConflict
		}
	}
	for key, data := range writes {
		s.put(key, data)
	}
	return nil
}

// Keys returns every stored key. Intended for tests.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs))
	for k := range s.docs {
		out = append(out, k)
	}
	return out
}

func (s *Store) put(key string, data []byte) {
	if data == nil {
		delete(s.docs, key)
		return
	}
	s.clock++
	s.docs[key] = entry{version: s.clock, data: clone(data)}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
