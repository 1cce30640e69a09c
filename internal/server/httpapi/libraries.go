package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/server/services"
)

func (s *Server) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	views, err := s.libraries.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	writeJSON(w, views)
}

func (s *Server) handleMyLibraries(w http.ResponseWriter, r *http.Request) {
	views, err := s.libraries.ListMine(r.Context(), callerID(r))
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	writeJSON(w, views)
}

func (s *Server) handleGetLibrary(w http.ResponseWriter, r *http.Request) {
	details, err := s.libraries.Get(r.Context(), chi.URLParam(r, "library_id"))
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	writeJSON(w, details)
}

func (s *Server) handleCreateLibrary(w http.ResponseWriter, r *http.Request) {
	if err := s.users.CheckPermission(r.Context(), callerID(r), isAdministrator); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	var in services.LibraryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	if err := s.libraries.Create(r.Context(), in); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdateLibrary(w http.ResponseWriter, r *http.Request) {
	if err := s.users.CheckPermission(r.Context(), callerID(r), isAdministrator); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	var in services.LibraryInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	if err := s.libraries.Update(r.Context(), chi.URLParam(r, "library_id"), in); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteLibrary(w http.ResponseWriter, r *http.Request) {
	if err := s.users.CheckPermission(r.Context(), callerID(r), isAdministrator); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	if err := s.libraries.Delete(r.Context(), chi.URLParam(r, "library_id")); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
