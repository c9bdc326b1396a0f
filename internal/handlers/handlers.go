package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"golang.org/x/oauth2"

	"github.com/s/peripatos/internal/auth"
	"github.com/s/peripatos/internal/courses"
	"github.com/s/peripatos/internal/lease"
	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/newsletter"
	"github.com/s/peripatos/internal/outline"
	"github.com/s/peripatos/internal/storage"
)

const (
	SessionName    = "session"
	SessionUserKey = "user_id"
	oauthStateKey  = "oauth_state"
)

//go:embed templates/*.html
var templateFS embed.FS

type Services struct {
	Auth       *auth.Service
	Courses    *courses.Service
	Newsletter *newsletter.Service
	Lease      *lease.Service
}

type Handler struct {
	Docs   storage.Store
	Store  *sessions.CookieStore
	Config *oauth2.Config
	Tmpl   *template.Template
	Log    *logger.Logger
	Services

	// FetchGoogleUser resolves the OAuth callback code; tests replace it.
	FetchGoogleUser func(ctx context.Context, cfg *oauth2.Config, code string) (*auth.GoogleUser, error)
}

// NewHandler parses the page templates. config may be nil, which disables
// Google sign-in.
func NewHandler(docs storage.Store, store *sessions.CookieStore, config *oauth2.Config, svc Services, log *logger.Logger) (*Handler, error) {
	funcMap := template.FuncMap{
		"add": func(i, j int) int {
			return i + j
		},
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return t.Format("Jan 2, 2006 15:04")
		},
		"mediumLabel": func(m models.Medium) string {
			return m.Label()
		},
		"json": func(v any) (template.JS, error) {
			b, err := json.Marshal(v)
			return template.JS(b), err
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	return &Handler{
		Docs:     docs,
		Store:    store,
		Config:   config,
		Tmpl:     tmpl,
		Log:      log.With("component", "http"),
		Services: svc,

		FetchGoogleUser: auth.FetchGoogleUser,
	}, nil
}

type PageData struct {
	Title           string
	IsAuthenticated bool
	User            *models.Profile
	CurrentPath     string

	Courses   []models.Course
	Course    *models.Course
	Outline   []outline.SectionTree
	PageHTML  map[string]template.HTML
	Groups    []CourseGroup
	Mediums   []models.Medium
	Spaces    []models.Space
	UserTypes []UserTypeOption
}

type CourseGroup struct {
	Medium  models.Medium
	Courses []models.Course
}

type UserTypeOption struct {
	Value   models.UserType
	Label   string
	Checked bool
}

type ctxKey struct{}

// WithUser stores the signed-in user on the request context.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKey{}).(*models.User)
	return u
}

// CurrentUser resolves the session user, preferring one already placed on
// the context by middleware.
func (h *Handler) CurrentUser(r *http.Request) (*models.User, bool) {
	if u := UserFrom(r.Context()); u != nil {
		return u, true
	}
	session, _ := h.Store.Get(r, SessionName)
	id, ok := session.Values[SessionUserKey].(string)
	if !ok || id == "" {
		return nil, false
	}
	u, err := h.Auth.GetUser(r.Context(), id)
	if err != nil {
		return nil, false
	}
	return u, true
}

// NewPageData fills the fields every page layout needs.
func (h *Handler) NewPageData(r *http.Request, title string) PageData {
	data := PageData{Title: title, CurrentPath: r.URL.Path}
	if u, ok := h.CurrentUser(r); ok {
		p := u.Profile()
		data.IsAuthenticated = true
		data.User = &p
	}
	return data
}

func (h *Handler) Render(w http.ResponseWriter, status int, name string, data PageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.Tmpl.ExecuteTemplate(w, name, data); err != nil {
		h.Log.Error("failed to render template", "template", name, "error", err)
	}
}

func (h *Handler) HandleMain(w http.ResponseWriter, r *http.Request) {
	data := h.NewPageData(r, "Home")
	list, err := h.Courses.ListPublished(r.Context())
	if err != nil {
		h.Log.Error("failed to list courses", "error", err)
	}
	if len(list) > 6 {
		list = list[:6]
	}
	data.Courses = list
	h.Render(w, http.StatusOK, "index.html", data)
}

func (h *Handler) HandleCourses(w http.ResponseWriter, r *http.Request) {
	data := h.NewPageData(r, "Courses")
	list, err := h.Courses.ListPublished(r.Context())
	if err != nil {
		h.Log.Error("failed to list courses", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.Courses = list
	h.Render(w, http.StatusOK, "courses.html", data)
}

func (h *Handler) HandleLease(w http.ResponseWriter, r *http.Request) {
	data := h.NewPageData(r, "Lease")
	spaces, err := h.Lease.List(r.Context())
	if err != nil {
		h.Log.Error("failed to list spaces", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data.Spaces = spaces
	h.Render(w, http.StatusOK, "lease.html", data)
}

func (h *Handler) HandleForbiddenPage(w http.ResponseWriter, r *http.Request) {
	h.Render(w, http.StatusForbidden, "403.html", h.NewPageData(r, "Forbidden"))
}

func (h *Handler) HandleNotFoundPage(w http.ResponseWriter, r *http.Request) {
	h.Render(w, http.StatusNotFound, "404.html", h.NewPageData(r, "Not found"))
}
