package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type readRecord struct {
	version int64
	data    []byte
}

// Tx records the versions of every document read so Commit can detect
// intervening writes. A Tx is used by one goroutine.
type Tx struct {
	ctx    context.Context
	store  Store
	reads  map[string]readRecord
	writes map[string][]byte
}

func newTx(ctx context.Context, s Store) *Tx {
	return &Tx{ctx: ctx, store: s, reads: map[string]readRecord{}, writes: map[string][]byte{}}
}

// Context returns the transaction's context.
func (tx *Tx) Context() context.Context { return tx.ctx }

// Get decodes the document at key into into.
// Pending writes in this transaction are visible.
//
// Postcondition: returns (false, nil) when the document does not exist and
// records its absence for the commit check.
func (tx *Tx) Get(key string, into any) (bool, error) {
	data, ok := tx.writes[key]
	if !ok {
		rec, seen := tx.reads[key]
		if !seen {
			doc, err := tx.store.Get(tx.ctx, key)
			switch {
			case errors.Is(err, ErrNotFound):
				rec = readRecord{}
			case err != nil:
				return false, fmt.Errorf("reading %s: %w", key, err)
			default:
				rec = readRecord{version: doc.Version, data: doc.Data}
			}
			tx.reads[key] = rec
		}
		data = rec.data
	}
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// Put stages value for key. Values identical to what was read are skipped.
func (tx *Tx) Put(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	tx.writes[key] = data
	return nil
}

// Delete stages removal of key.
func (tx *Tx) Delete(key string) {
	tx.writes[key] = nil
}

// changed returns the writes that differ from what was read.
func (tx *Tx) changed() map[string][]byte {
	out := make(map[string][]byte, len(tx.writes))
	for k, v := range tx.writes {
		if rec, ok := tx.reads[k]; ok && bytes.Equal(rec.data, v) && (v != nil || rec.version == 0) {
			continue
		}
		out[k] = v
	}
	return out
}

// Reads returns the keys read so far, in no particular order.
func (tx *Tx) Reads() []string {
	keys := make([]string, 0, len(tx.reads))
	for k := range tx.reads {
		keys = append(keys, k)
	}
	return keys
}

func (tx *Tx) commit() error {
	writes := tx.changed()
	if len(writes) == 0 {
		return nil
	}
	reads := make(map[string]int64, len(tx.reads))
	for k, rec := range tx.reads {
		reads[k] = rec.version
	}
	return tx.store.Commit(tx.ctx, reads, writes)
}

// RetryHook is told about every conflict that causes a re-run.
type RetryHook func(attempt int, err error)

// Run executes fn in a fresh Tx and commits it, re-running fn against fresh
// reads whenever the commit reports ErrConflict. An error from fn aborts
// without committing and is returned unchanged.
//
// Precondition: fn must be safe to invoke more than once.
// Postcondition: returns nil only if fn's last run committed.
func Run(ctx context.Context, s Store, maxAttempts int, onRetry RetryHook, fn func(*Tx) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("transaction attempt %d: %w", attempt, err)
		}
		tx := newTx(ctx, s)
		if err := fn(tx); err != nil {
			return err
		}
		err := tx.commit()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return fmt.Errorf("committing: %w", err)
		}
		lastErr = err
		if onRetry != nil {
			onRetry(attempt, err)
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
}

// CompareAndSwap applies update to the single document at key under Run.
// update receives the current value (zero T when absent) and reports whether
// the document exists afterwards.
func CompareAndSwap[T any](ctx context.Context, s Store, key string, maxAttempts int, update func(cur *T, exists bool) (keep bool, err error)) error {
	return Run(ctx, s, maxAttempts, nil, func(tx *Tx) error {
		var cur T
		exists, err := tx.Get(key, &cur)
		if err != nil {
			return err
		}
		keep, err := update(&cur, exists)
		if err != nil {
			return err
		}
		if !keep {
			if exists {
				tx.Delete(key)
			}
			return nil
		}
		return tx.Put(key, &cur)
	})
}

// Load reads and decodes a document outside any transaction.
func Load(ctx context.Context, s Store, key string, into any) (bool, error) {
	doc, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(doc.Data, into); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// Save encodes value and writes it unconditionally.
func Save(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Write(ctx, key, data)
}
