// Package courses manages course documents and their lifecycle.
package courses

import (
	"context"
	"errors"
	"fmt"

	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/storage"
	"github.com/s/peripatos/internal/validation"
)

const collection = "courses"

var (
	ErrNotFound  = errors.New("courses: course not found")
	ErrForbidden = errors.New("courses: not the author of this course")
)

type Service struct {
	store storage.Store
	log   *logger.Logger
}

func NewService(store storage.Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log.With("component", "courses")}
}

type NewCourse struct {
	Title       string        `json:"title" validate:"notblank,max=200"`
	Description string        `json:"description" validate:"max=5000"`
	Medium      models.Medium `json:"medium" validate:"medium"`
}

// CourseUpdate lists the fields an author may change; nil means unchanged.
type CourseUpdate struct {
	Title       *string        `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string        `json:"description" validate:"omitempty,max=5000"`
	Medium      *models.Medium `json:"medium" validate:"omitempty,medium"`
	Price       *float64       `json:"price" validate:"omitempty,gte=0"`
	Published   *bool          `json:"published"`
	Location    *string        `json:"location" validate:"omitempty,max=500"`
	Schedule    *string        `json:"schedule" validate:"omitempty,max=500"`
}

func (u CourseUpdate) fields() storage.Fields {
	f := storage.Fields{}
	if u.Title != nil {
		f["title"] = *u.Title
	}
	if u.Description != nil {
		f["description"] = *u.Description
	}
	if u.Medium != nil {
		f["medium"] = *u.Medium
	}
	if u.Price != nil {
		f["price"] = *u.Price
	}
	if u.Published != nil {
		f["published"] = *u.Published
	}
	if u.Location != nil {
		f["location"] = *u.Location
	}
	if u.Schedule != nil {
		f["schedule"] = *u.Schedule
	}
	return f
}

// CanEdit reports whether user may change course and its outline.
func CanEdit(course *models.Course, user *models.User) bool {
	return course != nil && user != nil && course.AuthorID == user.ID
}

// Create stores a new unpublished course owned by author.
func (s *Service) Create(ctx context.Context, author *models.User, in NewCourse) (*models.Course, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	id, err := s.store.Create(ctx, collection, storage.Fields{
		"title":       in.Title,
		"description": in.Description,
		"medium":      in.Medium,
		"price":       0,
		"published":   false,
		"authorId":    author.ID,
		"location":    "",
		"schedule":    "",
		"createdAt":   storage.ServerTimestamp,
	})
	if err != nil {
		s.log.Error("failed to create course", "author_id", author.ID, "error", err)
		return nil, fmt.Errorf("create course: %w", err)
	}
	s.log.Info("course created", "course_id", id, "author_id", author.ID)
	return s.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Course, error) {
	doc, err := s.store.Get(ctx, storage.Join(collection, id))
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	var c models.Course
	if err := storage.DecodeDocument(doc, &c); err != nil {
		return nil, fmt.Errorf("decode course %s: %w", id, err)
	}
	return &c, nil
}

// GetEditable returns the course if user is its author.
func (s *Service) GetEditable(ctx context.Context, id string, user *models.User) (*models.Course, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanEdit(c, user) {
		return nil, ErrForbidden
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, user *models.User, in CourseUpdate) (*models.Course, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.GetEditable(ctx, id, user); err != nil {
		return nil, err
	}
	fields := in.fields()
	if len(fields) == 0 {
		return s.Get(ctx, id)
	}
	if err := s.store.Update(ctx, storage.Join(collection, id), fields); err != nil {
		s.log.Error("failed to update course", "course_id", id, "error", err)
		return nil, fmt.Errorf("update course: %w", err)
	}
	return s.Get(ctx, id)
}

// ListPublished returns the published catalogue, newest first.
func (s *Service) ListPublished(ctx context.Context) ([]models.Course, error) {
	return s.list(ctx, storage.Query{
		Where:      []storage.Filter{{Field: "published", Value: true}},
		OrderBy:    "createdAt",
		Descending: true,
	})
}

// ListByAuthor returns every course the user authored, drafts included.
func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]models.Course, error) {
	return s.list(ctx, storage.Query{
		Where:      []storage.Filter{{Field: "authorId", Value: authorID}},
		OrderBy:    "createdAt",
		Descending: true,
	})
}

func (s *Service) list(ctx context.Context, q storage.Query) ([]models.Course, error) {
	docs, err := s.store.List(ctx, collection, q)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := make([]models.Course, len(docs))
	for i, doc := range docs {
		if err := storage.DecodeDocument(doc, &out[i]); err != nil {
			return nil, fmt.Errorf("decode course %s: %w", doc.Path, err)
		}
	}
	return out, nil
}

// Delete removes the course with its sections, pages and versions in one batch.
func (s *Service) Delete(ctx context.Context, id string, user *models.User) error {
	if _, err := s.GetEditable(ctx, id, user); err != nil {
		return err
	}
	course := storage.Join(collection, id)
	batch := storage.NewBatch()

	sections, err := s.store.List(ctx, storage.Join(course, "sections"), storage.Query{})
	if err != nil {
		return fmt.Errorf("list sections: %w", err)
	}
	for _, sec := range sections {
		pages, err := s.store.List(ctx, storage.Join(sec.Path, "pages"), storage.Query{})
		if err != nil {
			return fmt.Errorf("list pages: %w", err)
		}
		for _, p := range pages {
			batch.Delete(p.Path)
		}
		batch.Delete(sec.Path)
	}
	versions, err := s.store.List(ctx, storage.Join(course, "versions"), storage.Query{})
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	for _, v := range versions {
		batch.Delete(v.Path)
	}
	batch.Delete(course)

	if err := s.store.Commit(ctx, batch); err != nil {
		s.log.Error("failed to delete course", "course_id", id, "error", err)
		return fmt.Errorf("delete course: %w", err)
	}
	s.log.Info("course deleted", "course_id", id, "documents", batch.Len())
	return nil
}
