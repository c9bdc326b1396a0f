// Package sqlstore keeps documents in a single gorm-managed table, one row per
// document, with the fields serialised into a JSON column.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/s/peripatos/internal/storage"
)

// Document is the row layout of the documents table.
type Document struct {
	Path       string         `gorm:"primaryKey;size:512"`
	Collection string         `gorm:"index;size:512;not null"`
	DocID      string         `gorm:"size:128;not null"`
	Data       datatypes.JSON `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Document) TableName() string { return "documents" }

type Store struct {
	db    *gorm.DB
	clock func() time.Time
}

var _ storage.Store = (*Store)(nil)

type Option func(*Store)

func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the documents table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Document{})
}

func (s *Store) Create(ctx context.Context, collection string, fields storage.Fields) (string, error) {
	if err := storage.CheckCollection(collection); err != nil {
		return "", err
	}
	id := uuid.NewString()
	row, err := s.row(storage.Join(collection, id), fields, s.clock())
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return "", fmt.Errorf("create %s: %w", row.Path, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, path string) (*storage.Document, error) {
	if _, _, err := storage.SplitDocument(path); err != nil {
		return nil, err
	}
	var row Document
	err := s.db.WithContext(ctx).Where("path = ?", path).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, path)
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return toDocument(&row)
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

// List loads the whole collection and filters and sorts in Go, which keeps the
// behaviour identical across postgres and sqlite JSON dialects.
func (s *Store) List(ctx context.Context, collection string, q storage.Query) ([]*storage.Document, error) {
	if err := storage.CheckCollection(collection); err != nil {
		return nil, err
	}
	var rows []Document
	if err := s.db.WithContext(ctx).Where("collection = ?", collection).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	out := make([]*storage.Document, 0, len(rows))
	for i := range rows {
		doc, err := toDocument(&rows[i])
		if err != nil {
			return nil, err
		}
		ok, err := storage.Matches(doc.Fields, q.Where)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	storage.SortDocuments(out, q)
	return out, nil
}

func (s *Store) Commit(ctx context.Context, b *storage.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	now := s.clock()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.Ops() {
			if err := s.apply(tx, op, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) apply(tx *gorm.DB, op storage.Op, now time.Time) error {
	switch op.Kind {
	case storage.OpSet:
		row, err := s.row(op.Path, op.Fields, now)
		if err != nil {
			return err
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "path"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).Create(row).Error
		if err != nil {
			return fmt.Errorf("set %s: %w", op.Path, err)
		}
	case storage.OpUpdate:
		var row Document
		if err := tx.Where("path = ?", op.Path).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", storage.ErrNotFound, op.Path)
			}
			return fmt.Errorf("update %s: %w", op.Path, err)
		}
		current, err := decode(row.Data)
		if err != nil {
			return err
		}
		patch, err := storage.Prepare(op.Fields, now)
		if err != nil {
			return err
		}
		data, err := json.Marshal(storage.Merge(current, patch))
		if err != nil {
			return err
		}
		err = tx.Model(&Document{}).Where("path = ?", op.Path).Updates(map[string]interface{}{
			"data":       datatypes.JSON(data),
			"updated_at": now,
		}).Error
		if err != nil {
			return fmt.Errorf("update %s: %w", op.Path, err)
		}
	case storage.OpDelete:
		if err := tx.Where("path = ?", op.Path).Delete(&Document{}).Error; err != nil {
			return fmt.Errorf("delete %s: %w", op.Path, err)
		}
	default:
		return fmt.Errorf("sqlstore: unknown op %v", op.Kind)
	}
	return nil
}

func (s *Store) row(path string, fields storage.Fields, now time.Time) (*Document, error) {
	collection, id, err := storage.SplitDocument(path)
	if err != nil {
		return nil, err
	}
	prepared, err := storage.Prepare(fields, now)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(prepared)
	if err != nil {
		return nil, err
	}
	return &Document{
		Path:       path,
		Collection: collection,
		DocID:      id,
		Data:       datatypes.JSON(data),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func decode(data datatypes.JSON) (storage.Fields, error) {
	fields := storage.Fields{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return fields, nil
}

func toDocument(row *Document) (*storage.Document, error) {
	fields, err := decode(row.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", row.Path, err)
	}
	return &storage.Document{
		Path:      row.Path,
		ID:        row.DocID,
		Fields:    fields,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}
