package teach

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/peripatos/internal/courses"
	"github.com/s/peripatos/internal/handlers"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/outline"
	"github.com/s/peripatos/internal/render"
)

// HandleTeachPage lists the signed-in user's courses.
func (s *Service) HandleTeachPage(w http.ResponseWriter, r *http.Request) {
	user := handlers.UserFrom(r.Context())
	data := s.NewPageData(r, "Teach")
	list, err := s.Courses.ListByAuthor(r.Context(), user.ID)
	if err != nil {
		s.Log.Error("failed to list courses", "user_id", user.ID, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.Courses = list
	data.Mediums = models.Mediums
	s.Render(w, http.StatusOK, "teach.html", data)
}

// HandleCoursePage is the outline editor shell.
func (s *Service) HandleCoursePage(w http.ResponseWriter, r *http.Request) {
	user := handlers.UserFrom(r.Context())
	course, err := s.Courses.GetEditable(r.Context(), mux.Vars(r)["id"], user)
	switch {
	case errors.Is(err, courses.ErrNotFound):
		s.HandleNotFoundPage(w, r)
		return
	case errors.Is(err, courses.ErrForbidden):
		s.HandleForbiddenPage(w, r)
		return
	case err != nil:
		s.Log.Error("failed to load course", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	m, err := outline.Open(r.Context(), s.Docs, course.ID, outline.WithLogger(s.Log))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data := s.NewPageData(r, course.Title)
	data.Course = course
	data.Outline = m.Tree()
	s.Render(w, http.StatusOK, "teach_course.html", data)
}

func (s *Service) CreateCourseAPI(w http.ResponseWriter, r *http.Request) {
	var in courses.NewCourse
	if !handlers.DecodeJSON(w, r, &in) {
		return
	}
	c, err := s.Courses.Create(r.Context(), handlers.UserFrom(r.Context()), in)
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, c)
}

// GetCourseAPI returns a published course to anyone and a draft to its author.
func (s *Service) GetCourseAPI(w http.ResponseWriter, r *http.Request) {
	c, err := s.Courses.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	user, _ := s.CurrentUser(r)
	if !c.Published && !courses.CanEdit(c, user) {
		s.Fail(w, r, courses.ErrNotFound)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, c)
}

func (s *Service) UpdateCourseAPI(w http.ResponseWriter, r *http.Request) {
	var in courses.CourseUpdate
	if !handlers.DecodeJSON(w, r, &in) {
		return
	}
	c, err := s.Courses.Update(r.Context(), mux.Vars(r)["id"], handlers.UserFrom(r.Context()), in)
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, c)
}

func (s *Service) DeleteCourseAPI(w http.ResponseWriter, r *http.Request) {
	if err := s.Courses.Delete(r.Context(), mux.Vars(r)["id"], handlers.UserFrom(r.Context())); err != nil {
		s.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportMarkdownAPI downloads the whole course as one Markdown file.
func (s *Service) ExportMarkdownAPI(w http.ResponseWriter, r *http.Request) {
	m, course, ok := s.open(w, r)
	if !ok {
		return
	}
	md, err := render.CourseMarkdown(course, m.Tree())
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="course-`+course.ID+`.md"`)
	_, _ = w.Write([]byte(md))
}
