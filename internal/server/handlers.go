package server

import (
	"net/http"
	"strconv"
)

func (s *Server) handleGetTree(
	w http.ResponseWriter, _ *http.Request,
) {
	tree, err := s.svc.ListTree()
	if err != nil {
		writeArchiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleGetSession(
	w http.ResponseWriter, r *http.Request,
) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path required")
		return
	}

	index := 0
	if raw := q.Get("index"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest,
				"index must be a non-negative integer")
			return
		}
		index = n
	}

	conv, err := s.svc.GetSession(path, index)
	if err != nil {
		writeArchiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteEntry(
	w http.ResponseWriter, r *http.Request,
) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "path required")
		return
	}

	if err := s.svc.DeleteEntry(path); err != nil {
		writeArchiveError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": path})
}
