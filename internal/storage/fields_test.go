package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 5, time.UTC)
	got, err := Prepare(Fields{
		"order":     3,
		"title":     "Intro",
		"timestamp": ServerTimestamp,
		"content":   map[string]any{"blocks": []any{}},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, float64(3), got["order"])
	assert.Equal(t, "2024-03-01T10:00:00.000000005Z", got["timestamp"])
	assert.Equal(t, map[string]any{"blocks": []any{}}, got["content"])
}

func TestFormatTimeSortsLexically(t *testing.T) {
	a := FormatTime(time.Date(2024, 1, 1, 0, 0, 0, 900, time.UTC))
	b := FormatTime(time.Date(2024, 1, 1, 0, 0, 0, 1000, time.UTC))
	assert.Less(t, a, b)
	assert.Equal(t, len(a), len(b))

	parsed, err := ParseTime(b)
	require.NoError(t, err)
	assert.Equal(t, 1000, parsed.Nanosecond())
}

func TestEncodeDecode(t *testing.T) {
	type section struct {
		ID    string `json:"-"`
		Title string `json:"title"`
		Order int    `json:"order"`
	}
	f, err := Encode(section{ID: "x", Title: "A", Order: 2})
	require.NoError(t, err)
	assert.Equal(t, Fields{"title": "A", "order": float64(2)}, f)

	var out section
	require.NoError(t, Decode(f, &out))
	assert.Equal(t, section{Title: "A", Order: 2}, out)
}

func TestMatches(t *testing.T) {
	f := Fields{"authorId": "u1", "published": true, "price": float64(10)}

	ok, err := Matches(f, []Filter{{Field: "authorId", Value: "u1"}, {Field: "price", Value: 10}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Matches(f, []Filter{{Field: "published", Value: false}})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Matches(f, []Filter{{Field: "missing", Value: "x"}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSortDocuments(t *testing.T) {
	docs := []*Document{
		{Path: "c/b", Fields: Fields{"order": float64(1)}},
		{Path: "c/a", Fields: Fields{"order": float64(1)}},
		{Path: "c/c", Fields: Fields{"order": float64(0)}},
		{Path: "c/d", Fields: Fields{}},
	}
	SortDocuments(docs, Query{OrderBy: "order"})
	assert.Equal(t, []string{"c/d", "c/c", "c/a", "c/b"}, paths(docs))

	SortDocuments(docs, Query{OrderBy: "order", Descending: true})
	assert.Equal(t, []string{"c/a", "c/b", "c/c", "c/d"}, paths(docs))
}

func TestPaths(t *testing.T) {
	require.NoError(t, CheckCollection("courses"))
	require.NoError(t, CheckCollection(Join("courses", "c1", "sections")))
	assert.ErrorIs(t, CheckCollection("courses/c1"), ErrInvalidPath)
	assert.ErrorIs(t, CheckCollection(""), ErrInvalidPath)

	col, id, err := SplitDocument("courses/c1/sections/s1")
	require.NoError(t, err)
	assert.Equal(t, "courses/c1/sections", col)
	assert.Equal(t, "s1", id)

	_, _, err = SplitDocument("courses//x")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, _, err = SplitDocument("courses")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func paths(docs []*Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Path
	}
	return out
}
