package teach

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/s/peripatos/internal/handlers"
	"github.com/s/peripatos/internal/models"
	"github.com/s/peripatos/internal/outline"
)

type titleInput struct {
	Title string `json:"title"`
}

func (s *Service) OutlineAPI(w http.ResponseWriter, r *http.Request) {
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	handlers.WriteJSON(w, http.StatusOK, m.Tree())
}

func (s *Service) AddSectionAPI(w http.ResponseWriter, r *http.Request) {
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	section, page, err := m.AddSection(r.Context())
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, map[string]any{"section": section, "page": page})
}

func (s *Service) RenameSectionAPI(w http.ResponseWriter, r *http.Request) {
	var in titleInput
	if !handlers.DecodeJSON(w, r, &in) {
		return
	}
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := m.RenameSection(r.Context(), mux.Vars(r)["sectionId"], in.Title); err != nil {
		s.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) DeleteSectionAPI(w http.ResponseWriter, r *http.Request) {
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := m.DeleteSection(r.Context(), mux.Vars(r)["sectionId"]); err != nil {
		s.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) AddPageAPI(w http.ResponseWriter, r *http.Request) {
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	page, err := m.AddPage(r.Context(), mux.Vars(r)["sectionId"])
	if err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, page)
}

func (s *Service) RenamePageAPI(w http.ResponseWriter, r *http.Request) {
	var in titleInput
	if !handlers.DecodeJSON(w, r, &in) {
		return
	}
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := m.RenamePage(r.Context(), mux.Vars(r)["pageId"], in.Title); err != nil {
		s.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) DeletePageAPI(w http.ResponseWriter, r *http.Request) {
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := m.DeletePage(r.Context(), mux.Vars(r)["pageId"]); err != nil {
		s.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePageContentAPI takes either a tagged content payload or the raw
// editor document.
func (s *Service) UpdatePageContentAPI(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if !handlers.DecodeJSON(w, r, &raw) {
		return
	}
	var content models.Content
	if err := json.Unmarshal(raw, &content); err != nil || !content.Supported() {
		handlers.JSONError(w, "Unsupported page content", http.StatusBadRequest)
		return
	}
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := m.UpdatePageContent(r.Context(), mux.Vars(r)["pageId"], content); err != nil {
		s.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderAPI applies one drag event and returns the resulting outline.
func (s *Service) ReorderAPI(w http.ResponseWriter, r *http.Request) {
	var ev outline.DragEvent
	if !handlers.DecodeJSON(w, r, &ev) {
		return
	}
	m, _, ok := s.open(w, r)
	if !ok {
		return
	}
	if err := m.Reorder(r.Context(), ev); err != nil {
		s.Fail(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, m.Tree())
}
