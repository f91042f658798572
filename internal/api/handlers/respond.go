package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nikhilbhutani/ttsgateway/internal/tts"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(err error) int {
	switch tts.KindOf(err) {
	case tts.KindSchemaViolation:
		return http.StatusBadRequest
	case tts.KindUnknownProvider:
		return http.StatusNotFound
	case tts.KindInvalidRequest:
		return http.StatusUnprocessableEntity
	case tts.KindProviderUnavailable:
		return http.StatusServiceUnavailable
	case tts.KindNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Unclassified errors are logged and reported as a
// bare internal error so that their text never reaches the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var e *tts.Error
	if !errors.As(err, &e) {
		logger.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Kind: "internal"})
		return
	}
	body := errorBody{Error: e.Error(), Kind: string(e.Kind)}
	if e.Kind == tts.KindSchemaViolation {
		body.Field = e.Field
		if body.Field == "" {
			body.Field = "(root)"
		}
	}
	writeJSON(w, StatusFor(err), body)
}
