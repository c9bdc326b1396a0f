// Package storage defines the document store the application persists into.
//
// Documents live at slash-separated paths that alternate collection and
// document segments, e.g. courses/{courseId}/sections/{sectionId}. Every
// document holds a flat JSON object; nested values are opaque to the store.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("storage: document not found")
	ErrInvalidPath = errors.New("storage: invalid path")
)

type Fields map[string]any

type Document struct {
	Path      string
	ID        string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Filter struct {
	Field string
	Value any
}

type Query struct {
	Where      []Filter
	OrderBy    string
	Descending bool
}

type Store interface {
	// Create stores fields under a generated id in collection and returns the id.
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	Get(ctx context.Context, path string) (*Document, error)
	// Update merges fields into an existing document. ErrNotFound if absent.
	Update(ctx context.Context, path string, fields Fields) error
	// Set writes the document, replacing whatever was at path.
	Set(ctx context.Context, path string, fields Fields) error
	// Delete removes the document. Deleting an absent document succeeds.
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, collection string, q Query) ([]*Document, error)
	// Commit applies every operation in b or none of them.
	Commit(ctx context.Context, b *Batch) error
}
