package middleware

import (
	"net/http"
	"strings"

	"github.com/s/peripatos/internal/handlers"
)

// RequireUser lets only signed-in users through and puts the user on the
// request context. API calls get a JSON 401, pages are sent home.
func RequireUser(h *handlers.Handler) func(next http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, ok := h.CurrentUser(r)
			if !ok {
				if strings.HasPrefix(r.URL.Path, "/api/") {
					handlers.JSONError(w, "You need to sign in first.", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
		}
	}
}

// Cors allows cross-origin calls to the JSON API from the given origin.
func Cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if origin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
