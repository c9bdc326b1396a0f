package memstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/peripatos/internal/storage"
	"github.com/s/peripatos/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, clock *storagetest.Clock) storage.Store {
		return New(WithClock(clock.Now))
	})
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Set(ctx, "c/a", storage.Fields{"content": map[string]any{"blocks": []any{"x"}}}))

	doc, err := s.Get(ctx, "c/a")
	require.NoError(t, err)
	doc.Fields["content"].(map[string]any)["blocks"] = nil

	again, err := s.Get(ctx, "c/a")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"blocks": []any{"x"}}, again.Fields["content"])
}

func TestStore_WithIDs(t *testing.T) {
	n := 0
	s := New(WithIDs(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}))
	id, err := s.Create(context.Background(), "courses", storage.Fields{})
	require.NoError(t, err)
	assert.Equal(t, "id1", id)
	assert.Equal(t, 1, s.Len())
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Create(ctx, "courses", storage.Fields{})
	assert.ErrorIs(t, err, context.Canceled)
}
