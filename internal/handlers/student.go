package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/peripatos/internal/courses"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/outline"
	"github.com/s/peripatos/internal/render"
)

// HandleLearn groups the published catalogue by medium.
func (h *Handler) HandleLearn(w http.ResponseWriter, r *http.Request) {
	data := h.NewPageData(r, "Learn")
	list, err := h.Courses.ListPublished(r.Context())
	if err != nil {
		h.Log.Error("failed to list courses", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	byMedium := make(map[models.Medium][]models.Course)
	for _, c := range list {
		byMedium[c.Medium] = append(byMedium[c.Medium], c)
	}
	for _, m := range models.Mediums {
		if cs := byMedium[m]; len(cs) > 0 {
			data.Groups = append(data.Groups, CourseGroup{Medium: m, Courses: cs})
		}
	}
	h.Render(w, http.StatusOK, "learn.html", data)
}

// HandleCourseDetail shows a published course, or a draft to its author.
func (h *Handler) HandleCourseDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	course, err := h.Courses.Get(ctx, mux.Vars(r)["id"])
	if errors.Is(err, courses.ErrNotFound) {
		h.HandleNotFoundPage(w, r)
		return
	}
	if err != nil {
		h.Log.Error("failed to load course", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	user, _ := h.CurrentUser(r)
	if !course.Published && !courses.CanEdit(course, user) {
		h.HandleNotFoundPage(w, r)
		return
	}

	m, err := outline.Open(ctx, h.Docs, course.ID, outline.WithLogger(h.Log))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := h.NewPageData(r, course.Title)
	data.Course = course
	data.Outline = m.Tree()
	data.PageHTML = make(map[string]template.HTML)
	for _, p := range m.Pages() {
		body, err := render.HTML(p.Content, render.Options{HeadingOffset: 2})
		if err != nil {
			h.Log.Warn("skipping page content", "page_id", p.ID, "error", err)
			continue
		}
		// render only emits whitelisted markup.
		data.PageHTML[p.ID] = template.HTML(body)
	}
	h.Render(w, http.StatusOK, "course.html", data)
}
