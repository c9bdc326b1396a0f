package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/s/peripatos/internal/auth"
	"github.com/s/peripatos/internal/courses"
	"github.com/s/peripatos/internal/newsletter"
	"github.com/s/peripatos/internal/outline"
	"github.com/s/peripatos/internal/validation"
)

const msgGenericFailure = "Something went wrong. Please try again."

// APIError is the JSON body of every failed API call.
type APIError struct {
	Status int               `json:"-"`
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func JSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, APIError{Error: message})
}

// ToAPIError maps service errors to responses. Anything unrecognised is a
// remote failure and gets the generic notice.
func ToAPIError(err error) APIError {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return APIError{Status: http.StatusBadRequest, Error: "Please check the highlighted fields.", Fields: verr.Fields}
	case errors.Is(err, courses.ErrNotFound):
		return APIError{Status: http.StatusNotFound, Error: "Course not found."}
	case errors.Is(err, outline.ErrSectionNotFound):
		return APIError{Status: http.StatusNotFound, Error: "Section not found."}
	case errors.Is(err, outline.ErrPageNotFound):
		return APIError{Status: http.StatusNotFound, Error: "Page not found."}
	case errors.Is(err, outline.ErrVersionNotFound):
		return APIError{Status: http.StatusNotFound, Error: "Version not found."}
	case errors.Is(err, auth.ErrUserNotFound):
		return APIError{Status: http.StatusNotFound, Error: "User not found."}
	case errors.Is(err, outline.ErrInvalidIndex):
		return APIError{Status: http.StatusBadRequest, Error: "Invalid position."}
	case errors.Is(err, outline.ErrInvalidKind):
		return APIError{Status: http.StatusBadRequest, Error: "Only sections and pages can be moved."}
	case errors.Is(err, courses.ErrForbidden):
		return APIError{Status: http.StatusForbidden, Error: "You are not allowed to edit this course."}
	case errors.Is(err, auth.ErrEmailInUse):
		return APIError{Status: http.StatusConflict, Error: "This email is already in use."}
	case errors.Is(err, auth.ErrUsernameTaken):
		return APIError{Status: http.StatusConflict, Error: "This username is already taken."}
	case errors.Is(err, auth.ErrUnknownUsername):
		return APIError{Status: http.StatusUnauthorized, Error: "No user found with this username."}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return APIError{Status: http.StatusUnauthorized, Error: "Invalid email or password."}
	}
	return APIError{Status: http.StatusInternalServerError, Error: msgGenericFailure}
}

// Fail writes err as JSON, logging the ones that are not the caller's fault.
func (h *Handler) Fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := ToAPIError(err)
	if apiErr.Status >= http.StatusInternalServerError {
		h.Log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	WriteJSON(w, apiErr.Status, apiErr)
}

// DecodeJSON reads a JSON body, writing a 400 when it is malformed.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		JSONError(w, "Invalid JSON payload", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) SubscribeAPI(w http.ResponseWriter, r *http.Request) {
	var in newsletter.SubscribeInput
	if !DecodeJSON(w, r, &in) {
		return
	}
	sub, created, err := h.Newsletter.Subscribe(r.Context(), in)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	WriteJSON(w, status, sub)
}

func (h *Handler) SpacesAPI(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.Lease.List(r.Context())
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, spaces)
}

// PublishedCoursesAPI lists the public catalogue.
func (h *Handler) PublishedCoursesAPI(w http.ResponseWriter, r *http.Request) {
	list, err := h.Courses.ListPublished(r.Context())
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}
