// Package teach serves the course authoring pages and API.
package teach

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/peripatos/internal/handlers"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/outline"
)

type Service struct {
	*handlers.Handler
}

func NewService(h *handlers.Handler) *Service {
	return &Service{Handler: h}
}

// editable loads the course named in the URL for its author. Routes using
// it sit behind middleware.RequireUser.
func (s *Service) editable(w http.ResponseWriter, r *http.Request) (*models.Course, *models.User, bool) {
	user := handlers.UserFrom(r.Context())
	if user == nil {
		handlers.JSONError(w, "You need to sign in first.", http.StatusUnauthorized)
		return nil, nil, false
	}
	course, err := s.Courses.GetEditable(r.Context(), mux.Vars(r)["id"], user)
	if err != nil {
		s.Fail(w, r, err)
		return nil, nil, false
	}
	return course, user, true
}

// open loads the outline of an editable course. A Manager lives for one
// request; the store is re-read every time.
func (s *Service) open(w http.ResponseWriter, r *http.Request) (*outline.Manager, *models.Course, bool) {
	course, user, ok := s.editable(w, r)
	if !ok {
		return nil, nil, false
	}
	m, err := outline.Open(r.Context(), s.Docs, course.ID, outline.WithLogger(s.Log), outline.WithEditor(user))
	if err != nil {
		s.Fail(w, r, err)
		return nil, nil, false
	}
	return m, course, true
}
