package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/server/services"
)

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	views, err := s.books.List(r.Context(), chi.URLParam(r, "library_id"))
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	writeJSON(w, views)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	view, err := s.books.Get(r.Context(), chi.URLParam(r, "library_id"), chi.URLParam(r, "book_id"))
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var in services.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	if err := s.books.Add(r.Context(), callerID(r), chi.URLParam(r, "library_id"), in); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	var in services.BookInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	err := s.books.Update(r.Context(), callerID(r), chi.URLParam(r, "library_id"), chi.URLParam(r, "book_id"), in)
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	err := s.books.Delete(r.Context(), callerID(r), chi.URLParam(r, "library_id"), chi.URLParam(r, "book_id"))
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
