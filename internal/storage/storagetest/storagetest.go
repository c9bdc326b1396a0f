// Package storagetest is a behaviour suite every storage.Store must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/peripatos/internal/storage"
)

// Clock is a manually advanced clock for stores that accept one.
type Clock struct {
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

// Now returns the current instant and moves the clock forward one second.
func (c *Clock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}

// Run executes the suite. newStore must return an empty store driven by clock.
func Run(t *testing.T, newStore func(t *testing.T, clock *Clock) storage.Store) {
	t.Run("CreateGet", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())

		id, err := s.Create(ctx, "courses", storage.Fields{"title": "Logic", "price": 20})
		require.NoError(t, err)
		require.NotEmpty(t, id)

		doc, err := s.Get(ctx, storage.Join("courses", id))
		require.NoError(t, err)
		assert.Equal(t, id, doc.ID)
		assert.Equal(t, "Logic", doc.Fields["title"])
		assert.Equal(t, float64(20), doc.Fields["price"])

		_, err = s.Get(ctx, "courses/nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("InvalidPaths", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())

		_, err := s.Create(ctx, "courses/c1", storage.Fields{})
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
		_, err = s.Get(ctx, "courses")
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
		_, err = s.List(ctx, "courses/c1", storage.Query{})
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
	})

	t.Run("UpdateMerges", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())
		path := "courses/c1/sections/s1"

		require.NoError(t, s.Set(ctx, path, storage.Fields{"title": "A", "order": 0}))
		require.NoError(t, s.Update(ctx, path, storage.Fields{"order": 4}))

		doc, err := s.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, storage.Fields{"title": "A", "order": float64(4)}, doc.Fields)

		err = s.Update(ctx, "courses/c1/sections/missing", storage.Fields{"order": 1})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("SetOverwrites", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())
		path := "users/u1"

		require.NoError(t, s.Set(ctx, path, storage.Fields{"a": 1, "b": 2}))
		require.NoError(t, s.Set(ctx, path, storage.Fields{"c": 3}))

		doc, err := s.Get(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, storage.Fields{"c": float64(3)}, doc.Fields)
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())

		require.NoError(t, s.Set(ctx, "users/u1", storage.Fields{"a": 1}))
		require.NoError(t, s.Delete(ctx, "users/u1"))
		require.NoError(t, s.Delete(ctx, "users/u1"))

		_, err := s.Get(ctx, "users/u1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("ListOrdersAndFilters", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())
		col := "courses/c1/sections"

		require.NoError(t, s.Set(ctx, col+"/b", storage.Fields{"order": 2, "kind": "x"}))
		require.NoError(t, s.Set(ctx, col+"/a", storage.Fields{"order": 0, "kind": "y"}))
		require.NoError(t, s.Set(ctx, col+"/c", storage.Fields{"order": 1, "kind": "x"}))
		// Nested documents and other collections are not part of the listing.
		require.NoError(t, s.Set(ctx, col+"/a/pages/p1", storage.Fields{"order": 0}))
		require.NoError(t, s.Set(ctx, "courses/c2/sections/z", storage.Fields{"order": 0}))

		docs, err := s.List(ctx, col, storage.Query{OrderBy: "order"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "b"}, ids(docs))

		docs, err = s.List(ctx, col, storage.Query{OrderBy: "order", Descending: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, ids(docs))

		docs, err = s.List(ctx, col, storage.Query{
			Where:   []storage.Filter{{Field: "kind", Value: "x"}},
			OrderBy: "order",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, ids(docs))

		docs, err = s.List(ctx, "courses/c9/sections", storage.Query{})
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("ServerTimestamp", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		s := newStore(t, clock)

		first, err := s.Create(ctx, "courses/c1/versions", storage.Fields{"name": "v1", "timestamp": storage.ServerTimestamp})
		require.NoError(t, err)
		second, err := s.Create(ctx, "courses/c1/versions", storage.Fields{"name": "v2", "timestamp": storage.ServerTimestamp})
		require.NoError(t, err)

		doc, err := s.Get(ctx, storage.Join("courses/c1/versions", first))
		require.NoError(t, err)
		ts, ok := doc.Fields["timestamp"].(string)
		require.True(t, ok)
		_, err = storage.ParseTime(ts)
		require.NoError(t, err)

		docs, err := s.List(ctx, "courses/c1/versions", storage.Query{OrderBy: "timestamp", Descending: true})
		require.NoError(t, err)
		assert.Equal(t, []string{second, first}, ids(docs))
	})

	t.Run("BatchCommits", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())

		require.NoError(t, s.Set(ctx, "c/a", storage.Fields{"order": 0}))
		require.NoError(t, s.Set(ctx, "c/b", storage.Fields{"order": 1}))

		b := storage.NewBatch().
			Update("c/a", storage.Fields{"order": 1}).
			Update("c/b", storage.Fields{"order": 0}).
			Set("c/new", storage.Fields{"order": 2}).
			Delete("c/gone")
		require.NoError(t, s.Commit(ctx, b))

		docs, err := s.List(ctx, "c", storage.Query{OrderBy: "order"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "new"}, ids(docs))
	})

	t.Run("BatchIsAtomic", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())

		require.NoError(t, s.Set(ctx, "c/a", storage.Fields{"order": 0}))

		b := storage.NewBatch().
			Update("c/a", storage.Fields{"order": 7}).
			Delete("c/a").
			Set("c/b", storage.Fields{"order": 1}).
			Update("c/missing", storage.Fields{"order": 2})
		err := s.Commit(ctx, b)
		require.ErrorIs(t, err, storage.ErrNotFound)

		doc, err := s.Get(ctx, "c/a")
		require.NoError(t, err)
		assert.Equal(t, float64(0), doc.Fields["order"])
		_, err = s.Get(ctx, "c/b")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("BatchSeesItsOwnWrites", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())

		b := storage.NewBatch().
			Delete("s/old/pages/p").
			Set("s/new/pages/p", storage.Fields{"title": "moved", "order": 0}).
			Update("s/new/pages/p", storage.Fields{"order": 3})
		require.NoError(t, s.Commit(ctx, b))

		doc, err := s.Get(ctx, "s/new/pages/p")
		require.NoError(t, err)
		assert.Equal(t, storage.Fields{"title": "moved", "order": float64(3)}, doc.Fields)
	})

	t.Run("BatchRejectsBadPath", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t, NewClock())

		err := s.Commit(ctx, storage.NewBatch().Set("c/a", storage.Fields{}).Set("c", storage.Fields{}))
		assert.ErrorIs(t, err, storage.ErrInvalidPath)
		_, err = s.Get(ctx, "c/a")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func ids(docs []*storage.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
