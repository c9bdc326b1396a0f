package teach

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/peripatos/internal/handlers"
)

func (s *Service) ListVersionsAPI(w http.ResponseWriter, r *http.Request) {
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	versions, err := m.ListVersions(r.Context())
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, versions)
}

func (s *Service) SaveVersionAPI(w http.ResponseWriter, r *http.Request) {
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	v, err := m.SaveVersion(r.Context())
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, v)
}

func (s *Service) RenameVersionAPI(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !handlers.DecodeJSON(w, r, &in) {
		return
	}
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := m.RenameVersion(r.Context(), mux.Vars(r)["versionId"], in.Name); err != nil {
		s.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) RestoreVersionAPI(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SaveCurrentFirst bool `json:"saveCurrentFirst"`
	}
	if !handlers.DecodeJSON(w, r, &in) {
		return
	}
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	saved, err := m.RestoreVersion(r.Context(), mux.Vars(r)["versionId"], in.SaveCurrentFirst)
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, map[string]any{"outline": m.Tree(), "savedVersion": saved})
}
