package httpapi

import "net/http"

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.users.CheckPermission(r.Context(), callerID(r), isAdministrator); err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	dump, err := s.backup.Run(r.Context())
	if err != nil {
		writeError(r.Context(), w, s.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/sql")
	_, _ = w.Write(dump)
}
