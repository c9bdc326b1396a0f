// Package memstore is an in-process storage.Store used for local runs and tests.
package memstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s/peripatos/internal/storage"
)

type record struct {
	fields    storage.Fields
	createdAt time.Time
	updatedAt time.Time
}

type Store struct {
	sync.RWMutex
	docs  map[string]*record
	clock func() time.Time
	newID func() string
}

var _ storage.Store = (*Store)(nil) // interface compliance check

type Option func(*Store)

// WithClock overrides the clock used for server timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithIDs overrides id generation for Create.
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func New(opts ...Option) *Store {
	s := &Store{
		docs:  make(map[string]*record),
		clock: time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Create(ctx context.Context, collection string, fields storage.Fields) (string, error) {
	if err := storage.CheckCollection(collection); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.Lock()
	defer s.Unlock()

	id := s.newID()
	if err := s.set(storage.Join(collection, id), fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, path string) (*storage.Document, error) {
	if _, _, err := storage.SplitDocument(path); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()

	rec, ok := s.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
	}
	return toDocument(path, rec), nil
}

func (s *Store) Update(ctx context.Context, path string, fields storage.Fields) error {
	return s.Commit(ctx, storage.NewBatch().Update(path, fields))
}

func (s *Store) Set(ctx context.Context, path string, fields storage.Fields) error {
	return s.Commit(ctx, storage.NewBatch().Set(path, fields))
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.Commit(ctx, storage.NewBatch().Delete(path))
}

func (s *Store) List(ctx context.Context, collection string, q storage.Query) ([]*storage.Document, error) {
	if err := storage.CheckCollection(collection); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.RLock()
	defer s.RUnlock()

	prefix := collection + "/"
	var out []*storage.Document
	for path, rec := range s.docs {
		if !strings.HasPrefix(path, prefix) || strings.Contains(path[len(prefix):], "/") {
			continue
		}
		ok, err := storage.Matches(rec.fields, q.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, toDocument(path, rec))
		}
	}
	storage.SortDocuments(out, q)
	return out, nil
}

// Commit stages every operation against a copy of the touched documents and
// only publishes the result once all of them succeeded.
func (s *Store) Commit(ctx context.Context, b *storage.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Lock()
	defer s.Unlock()

	now := s.clock()
	staged := make(map[string]*record)
	lookup := func(path string) (*record, bool) {
		if rec, ok := staged[path]; ok {
			return rec, rec != nil
		}
		rec, ok := s.docs[path]
		return rec, ok
	}

	for _, op := range b.Ops() {
		switch op.Kind {
		case storage.OpSet:
			fields, err := storage.Prepare(op.Fields, now)
			if err != nil {
				return err
			}
			created := now
			if prev, ok := lookup(op.Path); ok {
				created = prev.createdAt
			}
			staged[op.Path] = &record{fields: fields, createdAt: created, updatedAt: now}
		case storage.OpUpdate:
			prev, ok := lookup(op.Path)
			if !ok {
				return fmt.Errorf("%w: %s", storage.ErrNotFound, op.Path)
			}
			patch, err := storage.Prepare(op.Fields, now)
			if err != nil {
				return err
			}
			staged[op.Path] = &record{fields: storage.Merge(prev.fields, patch), createdAt: prev.createdAt, updatedAt: now}
		case storage.OpDelete:
			staged[op.Path] = nil
		default:
			return fmt.Errorf("memstore: unknown op %v", op.Kind)
		}
	}

	for path, rec := range staged {
		if rec == nil {
			delete(s.docs, path)
			continue
		}
		s.docs[path] = rec
	}
	return nil
}

func (s *Store) set(path string, fields storage.Fields) error {
	now := s.clock()
	prepared, err := storage.Prepare(fields, now)
	if err != nil {
		return err
	}
	s.docs[path] = &record{fields: prepared, createdAt: now, updatedAt: now}
	return nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.docs)
}

func toDocument(path string, rec *record) *storage.Document {
	_, id, _ := storage.SplitDocument(path)
	return &storage.Document{
		Path:      path,
		ID:        id,
		Fields:    storage.Clone(rec.fields),
		CreatedAt: rec.createdAt,
		UpdatedAt: rec.updatedAt,
	}
}
