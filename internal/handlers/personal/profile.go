// Package personal serves the signed-in user's own pages.
package personal

import (
	"net/http"

	"github.com/s/peripatos/internal/auth"
	"github.com/s/peripatos/internal/handlers"
	"github.com/s/peripatos/internal/models"
)

type Service struct {
	*handlers.Handler
}

func NewService(h *handlers.Handler) *Service {
	return &Service{Handler: h}
}

var userTypeLabels = []struct {
	Value models.UserType
	Label string
}{
	{models.UserTypeStudent, "Student"},
	{models.UserTypeTeacher, "Teacher"},
	{models.UserTypeClassroomOwner, "Classroom owner"},
}

func (s *Service) HandleProfilePage(w http.ResponseWriter, r *http.Request) {
	user := handlers.UserFrom(r.Context())
	data := s.NewPageData(r, "Profile")
	for _, t := range userTypeLabels {
		data.UserTypes = append(data.UserTypes, handlers.UserTypeOption{
			Value:   t.Value,
			Label:   t.Label,
			Checked: user.HasType(t.Value),
		})
	}
	s.Render(w, http.StatusOK, "profile.html", data)
}

func (s *Service) GetProfileAPI(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, handlers.UserFrom(r.Context()).Profile())
}

func (s *Service) UpdateProfileAPI(w http.ResponseWriter, r *http.Request) {
	var in auth.ProfileUpdate
	if !handlers.DecodeJSON(w, r, &in) {
		return
	}
	u, err := s.Auth.UpdateProfile(r.Context(), handlers.UserFrom(r.Context()).ID, in)
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, u.Profile())
}

// MyCoursesAPI lists the courses the user authored, drafts included.
func (s *Service) MyCoursesAPI(w http.ResponseWriter, r *http.Request) {
	list, err := s.Courses.ListByAuthor(r.Context(), handlers.UserFrom(r.Context()).ID)
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}
