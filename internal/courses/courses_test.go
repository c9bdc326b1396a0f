package courses

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/outline"
	"github.com/s/peripatos/internal/storage/memstore"
	"github.com/s/peripatos/internal/storage/storagetest"
	"github.com/s/peripatos/internal/validation"
)

var (
	ada  = &models.User{ID: "ada"}
	alan = &models.User{ID: "alan"}
)

func newService() (*Service, *memstore.Store) {
	store := memstore.New(memstore.WithClock(storagetest.NewClock().Now))
	return NewService(store, logger.NewNop()), store
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()

	c, err := svc.Create(ctx, ada, NewCourse{Title: "Logic", Description: "Aristotle", Medium: models.MediumInPerson})
	require.NoError(t, err)
	assert.Equal(t, "ada", c.AuthorID)
	assert.False(t, c.Published)
	assert.False(t, c.CreatedAt.IsZero())

	_, err = svc.Create(ctx, ada, NewCourse{Title: " ", Medium: "radio"})
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "medium")
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	c, err := svc.Create(ctx, ada, NewCourse{Title: "Logic", Medium: models.MediumHybrid})
	require.NoError(t, err)

	price := 49.5
	published := true
	loc := "Lyceum"
	got, err := svc.Update(ctx, c.ID, ada, CourseUpdate{Price: &price, Published: &published, Location: &loc})
	require.NoError(t, err)
	assert.Equal(t, 49.5, got.Price)
	assert.True(t, got.Published)
	assert.Equal(t, "Lyceum", got.Location)
	assert.Equal(t, "Logic", got.Title)

	_, err = svc.Update(ctx, c.ID, alan, CourseUpdate{Price: &price})
	assert.ErrorIs(t, err, ErrForbidden)

	negative := -1.0
	_, err = svc.Update(ctx, c.ID, ada, CourseUpdate{Price: &negative})
	var verr *validation.Error
	assert.True(t, errors.As(err, &verr))

	_, err = svc.Update(ctx, "missing", ada, CourseUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListings(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService()
	published := true

	first, err := svc.Create(ctx, ada, NewCourse{Title: "Logic", Medium: models.MediumHybrid})
	require.NoError(t, err)
	second, err := svc.Create(ctx, ada, NewCourse{Title: "Rhetoric", Medium: models.MediumHybrid})
	require.NoError(t, err)
	other, err := svc.Create(ctx, alan, NewCourse{Title: "Computability", Medium: models.MediumOnlineAsynchronous})
	require.NoError(t, err)

	for _, c := range []*models.Course{first, other} {
		_, err := svc.Update(ctx, c.ID, &models.User{ID: c.AuthorID}, CourseUpdate{Published: &published})
		require.NoError(t, err)
	}

	pub, err := svc.ListPublished(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID, first.ID}, courseIDs(pub))

	mine, err := svc.ListByAuthor(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, courseIDs(mine))
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	svc, store := newService()
	c, err := svc.Create(ctx, ada, NewCourse{Title: "Logic", Medium: models.MediumHybrid})
	require.NoError(t, err)

	m, err := outline.Open(ctx, store, c.ID)
	require.NoError(t, err)
	s, _, err := m.AddSection(ctx)
	require.NoError(t, err)
	_, err = m.AddPage(ctx, s.ID)
	require.NoError(t, err)
	_, err = m.SaveVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, 5, store.Len())

	assert.ErrorIs(t, svc.Delete(ctx, c.ID, alan), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, c.ID, ada))
	assert.Equal(t, 0, store.Len())

	_, err = svc.Get(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCanEdit(t *testing.T) {
	c := &models.Course{AuthorID: "ada"}
	assert.True(t, CanEdit(c, ada))
	assert.False(t, CanEdit(c, alan))
	assert.False(t, CanEdit(c, nil))
}

func courseIDs(cs []models.Course) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}
