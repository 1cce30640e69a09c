package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/server/models"
	"github.com/sstoianov/liblend/internal/server/services"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type renameRequest struct {
	Name string `json:"name"`
}

func isAdministrator(r models.Role) bool { return r == models.RoleAdministrator }

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	if err := s.users.SignUp(r.Context(), req.Name, req.Email, req.Password); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	pair, err := s.users.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	s.setTokenCookies(w, pair)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookie)
	if err != nil {
		writeError(r.Context(), w, s.log, common.ErrLoggedOff)
		return
	}
	pair, err := s.users.Refresh(r.Context(), cookie.Value)
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	s.setTokenCookies(w, pair)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	view, err := s.users.Get(r.Context(), callerID(r))
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, s.log, common.Validation("invalid request body"))
		return
	}
	if err := s.users.UpdateName(r.Context(), callerID(r), req.Name); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if err := s.users.CheckPermission(r.Context(), callerID(r), isAdministrator); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	views, err := s.users.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	writeJSON(w, views)
}

// setTokenCookies delivers the pair as HttpOnly cookies. The refresh
// token is scoped to the refresh endpoint so it never rides along on
// ordinary requests.
func (s *Server) setTokenCookies(w http.ResponseWriter, pair *services.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(s.config.AccessTokenValidityDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/auth/refresh",
		MaxAge:   int(s.config.RefreshTokenValidityDuration.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
