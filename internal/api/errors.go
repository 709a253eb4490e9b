package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/streamdeckx/internal/action"
	"github.com/nerrad567/streamdeckx/internal/deck"
	"github.com/nerrad567/streamdeckx/internal/keys"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeInternal    = "internal_error"
	ErrCodeValidation  = "validation_error"
	ErrCodeUnsupported = "unsupported_variant"
	ErrCodeUnknownKey  = "unknown_key"
	ErrCodeUnavailable = "unavailable"
	ErrCodeUnpersisted = "missing_identity"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps an error from the deck, action or key packages to
// a response. Unrecognised errors are logged and reported as 500 without
// their text.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, deck.ErrNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, deck.ErrMissingIdentity):
		writeError(w, http.StatusConflict, ErrCodeUnpersisted, err.Error())
	case errors.Is(err, action.ErrUnsupportedVariant):
		writeError(w, http.StatusBadRequest, ErrCodeUnsupported, err.Error())
	case errors.Is(err, keys.ErrUnknownKey):
		writeError(w, http.StatusBadRequest, ErrCodeUnknownKey, err.Error())
	case errors.Is(err, action.ErrInvalidParameter),
		errors.Is(err, deck.ErrInvalidStyle):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestIDFrom(r.Context()),
			"error", err,
		)
		writeInternalError(w, "internal server error")
	}
}
