package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/s/peripatos/internal/auth"
	"github.com/s/peripatos/internal/courses"
	"github.com/s/peripatos/internal/outline"
	"github.com/s/peripatos/internal/validation"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", validation.NewError("title", "required"), http.StatusBadRequest},
		{"course missing", courses.ErrNotFound, http.StatusNotFound},
		{"wrapped page missing", fmt.Errorf("rename page: %w", outline.ErrPageNotFound), http.StatusNotFound},
		{"bad index", outline.ErrInvalidIndex, http.StatusBadRequest},
		{"unknown item kind", fmt.Errorf("%w: %q", outline.ErrInvalidKind, "chapter"), http.StatusBadRequest},
		{"forbidden", courses.ErrForbidden, http.StatusForbidden},
		{"email taken", auth.ErrEmailInUse, http.StatusConflict},
		{"unknown username", auth.ErrUnknownUsername, http.StatusUnauthorized},
		{"bad password", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"store down", errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToAPIError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.NotEmpty(t, got.Error)
		})
	}

	assert.Equal(t, msgGenericFailure, ToAPIError(errors.New("pq: relation missing")).Error)
	assert.Equal(t, "No user found with this username.", ToAPIError(auth.ErrUnknownUsername).Error)
	assert.Equal(t, "required", ToAPIError(validation.NewError("title", "required")).Fields["title"])
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Title string `json:"title"`
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"x"}`))
	assert.True(t, DecodeJSON(w, r, &v))
	assert.Equal(t, "x", v.Title)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":`))
	assert.False(t, DecodeJSON(w, r, &v))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid JSON payload"}`, w.Body.String())
}
