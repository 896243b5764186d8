package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/fiefdom/internal/storage"
)

// DocumentStore implements storage.Store over the documents table.
// Versions are drawn from the document_versions sequence so a deleted and
// recreated key never repeats a version.
type DocumentStore struct {
	db *pgxpool.Pool
}

// NewDocumentStore creates a DocumentStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool with migrations applied.
func NewDocumentStore(db *pgxpool.Pool) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get implements storage.Store.
func (s *DocumentStore) Get(ctx context.Context, key string) (storage.Document, error) {
	doc := storage.Document{Key: key}
	err := s.db.QueryRow(ctx,
		`SELECT version, data FROM documents WHERE key = $1`, key,
	).Scan(&doc.Version, &doc.Data)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.Document{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Document{}, fmt.Errorf("selecting document %s: %w", key, err)
	}
	return doc, nil
}

// Write implements storage.Store.
func (s *DocumentStore) Write(ctx context.Context, key string, data []byte) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO documents (key, version, data, updated_at)
		VALUES ($1, nextval('document_versions'), $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET version = nextval('document_versions'), data = EXCLUDED.data, updated_at = NOW()`,
		key, data,
	)
	if err != nil {
		return fmt.Errorf("writing document %s: %w", key, err)
	}
	return nil
}

// Commit implements storage.Store. Read keys are locked in sorted order with
// SELECT ... FOR UPDATE and compared against the expected versions before
// any write is issued.
//
// Postcondition: Returns storage.ErrConflict and leaves the table unchanged
// when any read version moved, a concurrent insert won, or the database
// reported a serialization failure or deadlock.
func (s *DocumentStore) Commit(ctx context.Context, reads map[string]int64, writes map[string][]byte) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning commit: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	keys := make([]string, 0, len(reads)+len(writes))
	for k := range reads {
		keys = append(keys, k)
	}
	for k := range writes {
		if _, ok := reads[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	current := make(map[string]int64, len(keys))
	for _, key := range keys {
		var version int64
		err := tx.QueryRow(ctx,
			`SELECT version FROM documents WHERE key = $1 FOR UPDATE`, key,
		).Scan(&version)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return classify(fmt.Errorf("locking document %s: %w", key, err))
		}
		current[key] = version
		if want, ok := reads[key]; ok && want != version {
			return storage.ErrConflict
		}
	}

	writeKeys := make([]string, 0, len(writes))
	for k := range writes {
		writeKeys = append(writeKeys, k)
	}
	sort.Strings(writeKeys)

	for _, key := range writeKeys {
		data := writes[key]
		switch {
		case data == nil:
			_, err = tx.Exec(ctx, `DELETE FROM documents WHERE key = $1`, key)
		case current[key] == 0:
			_, err = tx.Exec(ctx, `
				INSERT INTO documents (key, version, data, updated_at)
				VALUES ($1, nextval('document_versions'), $2, NOW())`,
				key, data,
			)
		default:
			_, err = tx.Exec(ctx, `
				UPDATE documents
				SET version = nextval('document_versions'), data = $2, updated_at = NOW()
				WHERE key = $1`,
				key, data,
			)
		}
		if err != nil {
			return classify(fmt.Errorf("writing document %s: %w", key, err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("committing: %w", err))
	}
	return nil
}

// classify maps races the database detected onto storage.ErrConflict.
func classify(err error) error {
	if isDuplicateKeyError(err) || isRetryableError(err) {
		return fmt.Errorf("%w: %w", storage.ErrConflict, err)
	}
	return err
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}

// isRetryableError reports serialization failures (40001) and deadlocks (40P01).
func isRetryableError(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "40001", "40P01":
			return true
		}
	}
	return false
}
