package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yourorg/siteops/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps domain sentinel errors onto HTTP status codes. The
// message carries the wrapped detail, which the UI shows verbatim.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredential):
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeForbidden(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusForbidden, ErrorResponse{Error: err.Error()})
}
