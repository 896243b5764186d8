package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/fiefdom/internal/storage"
	"github.com/cory-johannsen/fiefdom/internal/storage/memory"
)

type counter struct {
	N int `json:"n"`
}

func TestGet_Missing(t *testing.T) {
	s := memory.New()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWriteThenGet(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "k", []byte(`{"n":1}`)))
	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "k", doc.Key)
	assert.Positive(t, doc.Version)
	assert.JSONEq(t, `{"n":1}`, string(doc.Data))
}

func TestCommit_ConflictWritesNothing(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "a", []byte(`1`)))
	doc, _ := s.Get(ctx, "a")
	require.NoError(t, s.Write(ctx, "a", []byte(`2`)))

	err := s.Commit(ctx, map[string]int64{"a": doc.Version}, map[string][]byte{"a": []byte(`3`), "b": []byte(`4`)})
	assert.ErrorIs(t, err, storage.ErrConflict)

	cur, _ := s.Get(ctx, "a")
	assert.Equal(t, "2", string(cur.Data))
	_, err = s.Get(ctx, "b")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCommit_AbsentReadConflictsWithCreate(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "a", []byte(`1`)))
	err := s.Commit(ctx, map[string]int64{"a": 0}, map[string][]byte{"a": []byte(`2`)})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestCommit_NilDeletes(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "a", []byte(`1`)))
	doc, _ := s.Get(ctx, "a")
	require.NoError(t, s.Commit(ctx, map[string]int64{"a": doc.Version}, map[string][]byte{"a": nil}))
	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteRecreate_NewVersion(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "a", []byte(`1`)))
	first, _ := s.Get(ctx, "a")
	require.NoError(t, s.Commit(ctx, nil, map[string][]byte{"a": nil}))
	require.NoError(t, s.Write(ctx, "a", []byte(`1`)))
	second, _ := s.Get(ctx, "a")
	assert.NotEqual(t, first.Version, second.Version)
}

func TestRun_RetriesOnConflict(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, storage.Save(ctx, s, "c", counter{}))

	calls := 0
	retries := 0
	err := storage.Run(ctx, s, 3, func(int, error) { retries++ }, func(tx *storage.Tx) error {
		calls++
		var c counter
		if _, err := tx.Get("c", &c); err != nil {
			return err
		}
		if calls == 1 {
			// interleaved writer
			require.NoError(t, storage.Save(ctx, s, "c", counter{N: 100}))
		}
		c.N++
		return tx.Put("c", c)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, retries)

	var got counter
	_, err = storage.Load(ctx, s, "c", &got)
	require.NoError(t, err)
	assert.Equal(t, 101, got.N)
}

func TestRun_Exhausted(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	n := 0
	err := storage.Run(ctx, s, 2, nil, func(tx *storage.Tx) error {
		var c counter
		if _, err := tx.Get("c", &c); err != nil {
			return err
		}
		n++
		require.NoError(t, storage.Save(ctx, s, "c", counter{N: n}))
		return tx.Put("c", counter{N: -1})
	})
	assert.ErrorIs(t, err, storage.ErrRetriesExhausted)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestRun_FnErrorAbortsWithoutCommit(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	boom := assert.AnError
	err := storage.Run(ctx, s, 3, nil, func(tx *storage.Tx) error {
		require.NoError(t, tx.Put("x", counter{N: 1}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Keys())
}

func TestTx_SeesOwnWrites(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	err := storage.Run(ctx, s, 1, nil, func(tx *storage.Tx) error {
		require.NoError(t, tx.Put("x", counter{N: 7}))
		var c counter
		ok, err := tx.Get("x", &c)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 7, c.N)
		tx.Delete("x")
		ok, err = tx.Get("x", &c)
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestTx_UnchangedWriteSkipped(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, storage.Save(ctx, s, "x", counter{N: 1}))
	before, _ := s.Get(ctx, "x")
	require.NoError(t, storage.Run(ctx, s, 1, nil, func(tx *storage.Tx) error {
		var c counter
		if _, err := tx.Get("x", &c); err != nil {
			return err
		}
		return tx.Put("x", c)
	}))
	after, _ := s.Get(ctx, "x")
	assert.Equal(t, before.Version, after.Version)
}

func TestCompareAndSwap_CreateAndDelete(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	require.NoError(t, storage.CompareAndSwap(ctx, s, "k", 3, func(c *counter, exists bool) (bool, error) {
		assert.False(t, exists)
		c.N = 5
		return true, nil
	}))
	var got counter
	ok, err := storage.Load(ctx, s, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, got.N)

	require.NoError(t, storage.CompareAndSwap(ctx, s, "k", 3, func(c *counter, exists bool) (bool, error) {
		assert.True(t, exists)
		return false, nil
	}))
	ok, err = storage.Load(ctx, s, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := storage.Run(ctx, memory.New(), 3, nil, func(*storage.Tx) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

// Property: concurrent increments through Run are never lost.
func TestProperty_ConcurrentIncrementsSerialize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		workers := rapid.IntRange(2, 8).Draw(t, "workers")
		per := rapid.IntRange(1, 10).Draw(t, "per")
		s := memory.New()
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, workers*per)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < per; i++ {
					errs <- storage.CompareAndSwap(ctx, s, "n", 1000, func(c *counter, _ bool) (bool, error) {
						c.N++
						return true, nil
					})
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("increment failed: %v", err)
			}
		}
		var got counter
		if _, err := storage.Load(ctx, s, "n", &got); err != nil {
			t.Fatal(err)
		}
		if got.N != workers*per {
			t.Fatalf("expected %d, got %d", workers*per, got.N)
		}
	})
}
