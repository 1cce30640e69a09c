// Package httpapi exposes the lending service over HTTP: chi routing,
// cookie-carried tokens, and the error-to-status mapping.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/sstoianov/liblend/internal/common"
	"github.com/sstoianov/liblend/internal/logging"
)

// writeError maps service errors onto HTTP statuses. Anything outside
// the sentinel set is logged with its full chain and reported as a bare
// 500: internal detail never reaches the client.
func writeError(ctx context.Context, w http.ResponseWriter, log logging.Logger, err error) {
	switch {
	case common.IsValidation(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, common.ErrAccountExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, common.ErrLoggedOff), errors.Is(err, common.ErrInvalidCredentials):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, common.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, common.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Error(ctx, "internal error", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
