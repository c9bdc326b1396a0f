// Package lease lists the venues teachers can rent.
package lease

import (
	"context"
	"fmt"

	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
)

const collection = "spaces"

type Service struct {
	store storage.Store
}

func NewService(store storage.Store) *Service {
	return &Service{store: store}
}

// List returns every space, cheapest first.
func (s *Service) List(ctx context.Context) ([]models.Space, error) {
	docs, err := s.store.List(ctx, collection, storage.Query{OrderBy: "price"})
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	out := make([]models.Space, len(docs))
	for i, doc := range docs {
		if err := storage.DecodeDocument(doc, &out[i]); err != nil {
			return nil, fmt.Errorf("decode space %s: %w", doc.Path, err)
		}
	}
	return out, nil
}

// Put stores a space under its id, creating or replacing it.
func (s *Service) Put(ctx context.Context, space models.Space) error {
	fields, err := storage.EncodeDocument(space)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, storage.Join(collection, space.ID), fields); err != nil {
		return fmt.Errorf("put space %s: %w", space.ID, err)
	}
	return nil
}
