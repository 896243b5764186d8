package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/fiefdom/internal/storage"
	"github.com/cory-johannsen/fiefdom/internal/testutil"
)

func uniqueKey(prefix string) string {
	return fmt.Sprintf("%s/%d", prefix, time.Now().UnixNano())
}

type tally struct {
	N int `json:"n"`
}

func TestDocumentStore(t *testing.T) {
	s := testutil.NewDocumentStore(t)
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := s.Get(ctx, uniqueKey("missing"))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("write then get", func(t *testing.T) {
		key := uniqueKey("write")
		require.NoError(t, s.Write(ctx, key, []byte(`{"n": 3}`)))
		doc, err := s.Get(ctx, key)
		require.NoError(t, err)
		assert.Positive(t, doc.Version)
		assert.JSONEq(t, `{"n":3}`, string(doc.Data))
	})

	t.Run("stale read conflicts", func(t *testing.T) {
		key := uniqueKey("stale")
		require.NoError(t, s.Write(ctx, key, []byte(`1`)))
		doc, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.NoError(t, s.Write(ctx, key, []byte(`2`)))

		other := uniqueKey("other")
		err = s.Commit(ctx, map[string]int64{key: doc.Version}, map[string][]byte{key: []byte(`3`), other: []byte(`4`)})
		assert.ErrorIs(t, err, storage.ErrConflict)
		_, err = s.Get(ctx, other)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("absent read conflicts with create", func(t *testing.T) {
		key := uniqueKey("absent")
		require.NoError(t, s.Write(ctx, key, []byte(`1`)))
		err := s.Commit(ctx, map[string]int64{key: 0}, map[string][]byte{key: []byte(`2`)})
		assert.ErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("delete", func(t *testing.T) {
		key := uniqueKey("delete")
		require.NoError(t, s.Write(ctx, key, []byte(`1`)))
		doc, err := s.Get(ctx, key)
		require.NoError(t, err)
		require.NoError(t, s.Commit(ctx, map[string]int64{key: doc.Version}, map[string][]byte{key: nil}))
		_, err = s.Get(ctx, key)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("concurrent increments", func(t *testing.T) {
		key := uniqueKey("counter")
		const workers, per = 4, 5
		var wg sync.WaitGroup
		errs := make(chan error, workers*per)
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < per; i++ {
					errs <- storage.CompareAndSwap(ctx, s, key, 100, func(c *tally, _ bool) (bool, error) {
						c.N++
						return true, nil
					})
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		var got tally
		ok, err := storage.Load(ctx, s, key, &got)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, workers*per, got.N)
	})
}

func TestPool_ApplicationNameAndStats(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	ctx := context.Background()

	var name string
	require.NoError(t, pc.RawPool.QueryRow(ctx, "SELECT current_setting('application_name')").Scan(&name))
	assert.Equal(t, "fiefdom-test", name)
	assert.GreaterOrEqual(t, pc.Pool.Stats().Total, int32(1))
	assert.NoError(t, pc.Pool.Health(ctx, 5*time.Second))
}
