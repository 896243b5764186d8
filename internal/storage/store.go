// Package storage defines the versioned document store the engine mutates
// through, and the optimistic multi-document transaction built on it.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict is returned by Commit when a read document changed.
	ErrConflict = errors.New("version conflict")
	// ErrRetriesExhausted is returned by Run after too many conflicts.
	ErrRetriesExhausted = errors.New("transaction retries exhausted")
)

// Document is one stored JSON value with its version.
// Version 0 means the document does not exist.
type Document struct {
	Key     string
	Version int64
	Data    []byte
}

// Store is the shared document store.
type Store interface {
	// Get returns the document at key or ErrNotFound.
	Get(ctx context.Context, key string) (Document, error)
	// Write stores data at key unconditionally.
	Write(ctx context.Context, key string, data []byte) error
	// Commit applies writes atomically if every key in reads still has the
	// recorded version (0 for absent), else returns ErrConflict and writes nothing.
	// A nil value in writes deletes the document.
	Commit(ctx context.Context, reads map[string]int64, writes map[string][]byte) error
}
