package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mkessler/logvault/internal/archive"
)

// writeJSON writes v as JSON with the given HTTP status code.
// Encoding failures at this point cannot be reported to the client;
// the connection is simply left with a truncated body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response with the given status and
// message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeArchiveError maps the archive error taxonomy onto HTTP status
// codes: sandbox violations are client errors, missing paths and
// sessions are 404s, and parse or I/O failures on an explicitly
// requested session are server errors.
func writeArchiveError(w http.ResponseWriter, err error) {
	var secErr *archive.SecurityError
	switch {
	case errors.As(err, &secErr):
		writeError(w, http.StatusBadRequest, secErr.Error())
	case errors.Is(err, archive.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
