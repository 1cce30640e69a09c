package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/server/services"
)

type returnRequest struct {
	Book string `json:"book"`
}

func (s *Server) handleLend(w http.ResponseWriter, r *http.Request) {
	var in services.LendInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	if err := s.lendings.Lend(r.Context(), callerID(r), in); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	if err := s.lendings.Return(r.Context(), callerID(r), req.Book); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	views, err := s.lendings.Pending(r.Context(), callerID(r), chi.URLParam(r, "library_id"))
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	writeJSON(w, views)
}
