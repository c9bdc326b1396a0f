// Package server assembles the HTTP routes.
package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/peripatos/internal/handlers"
	"github.com/s/peripatos/internal/handlers/personal"
	"github.com/s/peripatos/internal/handlers/teach"
	"github.com/s/peripatos/internal/middleware"
)

// NewRouter wires every page and API route. staticDir may be empty.
func NewRouter(h *handlers.Handler, staticDir string) *mux.Router {
	teachService := teach.NewService(h)
	personalService := personal.NewService(h)
	userOnly := middleware.RequireUser(h)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(h.HandleNotFoundPage)

	if staticDir != "" {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	// Pages
	r.HandleFunc("/", h.HandleMain).Methods("GET")
	r.HandleFunc("/courses", h.HandleCourses).Methods("GET")
	r.HandleFunc("/courses/{id}", h.HandleCourseDetail).Methods("GET")
	r.HandleFunc("/learn", h.HandleLearn).Methods("GET")
	r.HandleFunc("/lease", h.HandleLease).Methods("GET")
	r.HandleFunc("/teach", userOnly(teachService.HandleTeachPage)).Methods("GET")
	r.HandleFunc("/teach/course/{id}", userOnly(teachService.HandleCoursePage)).Methods("GET")
	r.HandleFunc("/profile", userOnly(personalService.HandleProfilePage)).Methods("GET")

	// Auth
	r.HandleFunc("/api/auth/signup", h.SignUpAPI).Methods("POST")
	r.HandleFunc("/api/auth/login", h.LoginAPI).Methods("POST")
	r.HandleFunc("/logout", h.HandleLogout).Methods("GET", "POST")
	r.HandleFunc("/auth/google/login", h.HandleGoogleLogin).Methods("GET")
	r.HandleFunc("/auth/google/callback", h.HandleGoogleCallback).Methods("GET")

	// Profile
	r.HandleFunc("/api/profile", userOnly(personalService.GetProfileAPI)).Methods("GET")
	r.HandleFunc("/api/profile", userOnly(personalService.UpdateProfileAPI)).Methods("PUT")
	r.HandleFunc("/api/my/courses", userOnly(personalService.MyCoursesAPI)).Methods("GET")

	// Marketing
	r.HandleFunc("/api/subscribe", h.SubscribeAPI).Methods("POST")
	r.HandleFunc("/api/spaces", h.SpacesAPI).Methods("GET")

	// Courses
	r.HandleFunc("/api/courses", h.PublishedCoursesAPI).Methods("GET")
	r.HandleFunc("/api/courses", userOnly(teachService.CreateCourseAPI)).Methods("POST")
	r.HandleFunc("/api/courses/{id}", teachService.GetCourseAPI).Methods("GET")
	r.HandleFunc("/api/courses/{id}", userOnly(teachService.UpdateCourseAPI)).Methods("PUT")
	r.HandleFunc("/api/courses/{id}", userOnly(teachService.DeleteCourseAPI)).Methods("DELETE")
	r.HandleFunc("/api/courses/{id}/export.md", userOnly(teachService.ExportMarkdownAPI)).Methods("GET")

	// Outline
	r.HandleFunc("/api/courses/{id}/outline", userOnly(teachService.OutlineAPI)).Methods("GET")
	r.HandleFunc("/api/courses/{id}/sections", userOnly(teachService.AddSectionAPI)).Methods("POST")
	r.HandleFunc("/api/courses/{id}/sections/{sectionId}", userOnly(teachService.RenameSectionAPI)).Methods("PUT")
	r.HandleFunc("/api/courses/{id}/sections/{sectionId}", userOnly(teachService.DeleteSectionAPI)).Methods("DELETE")
	r.HandleFunc("/api/courses/{id}/sections/{sectionId}/pages", userOnly(teachService.AddPageAPI)).Methods("POST")
	r.HandleFunc("/api/courses/{id}/pages/{pageId}", userOnly(teachService.RenamePageAPI)).Methods("PUT")
	r.HandleFunc("/api/courses/{id}/pages/{pageId}", userOnly(teachService.DeletePageAPI)).Methods("DELETE")
	r.HandleFunc("/api/courses/{id}/pages/{pageId}/content", userOnly(teachService.UpdatePageContentAPI)).Methods("PUT")
	r.HandleFunc("/api/courses/{id}/reorder", userOnly(teachService.ReorderAPI)).Methods("POST")

	// Versions
	r.HandleFunc("/api/courses/{id}/versions", userOnly(teachService.ListVersionsAPI)).Methods("GET")
	r.HandleFunc("/api/courses/{id}/versions", userOnly(teachService.SaveVersionAPI)).Methods("POST")
	r.HandleFunc("/api/courses/{id}/versions/{versionId}", userOnly(teachService.RenameVersionAPI)).Methods("PUT")
	r.HandleFunc("/api/courses/{id}/versions/{versionId}/restore", userOnly(teachService.RestoreVersionAPI)).Methods("POST")

	return r
}
