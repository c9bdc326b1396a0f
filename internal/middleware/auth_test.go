package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCors(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("preflight stops here", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		Cors("*")(next).ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/courses", nil))
		assert.False(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("named origin allows credentials", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		Cors("https://peripatos.example")(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/courses", nil))
		assert.True(t, called)
		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Equal(t, "https://peripatos.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
}
