package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/logging"
)

const (
	accessCookie  = "access-token"
	refreshCookie = "refresh-token"
)

type ctxKey int

const callerKey ctxKey = 0

// callerID returns the authenticated caller's row id placed in the
// request context by the identity middleware.
func callerID(r *http.Request) int64 {
	id, _ := r.Context().Value(callerKey).(int64)
	return id
}

// identity resolves the access-token cookie to a row id and stores it
// in the request context. Requests without a usable identity stop here
// with 401.
func (s *Server) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(accessCookie)
		if err != nil {
			writeError(r.Context(), w, s.log, common.ErrLoggedOff)
			return
		}
		rowID, err := s.users.Authenticate(cookie.Value)
		if err != nil {
			writeError(r.Context(), w, s.log, err)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey, rowID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogging logs method, path, status and duration of every request.
func requestLogging(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration", time.Since(start).String(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
