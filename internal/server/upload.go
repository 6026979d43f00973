package server

import (
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
)

// maxUploadMemory bounds how much of a multipart body is held in
// memory before spilling to temp files.
const maxUploadMemory = 32 << 20 // 32MB

// uploadFile is one (relativeName, content) pair from a multipart
// upload. The archive-relative path travels in the form field name:
// part filenames cannot carry directories, mime/multipart strips
// them to the base name.
type uploadFile struct {
	relName string
	header  *multipart.FileHeader
}

// parseUploadRequest extracts and validates the upload pairs. Every
// name is validated before any file is stored, so a bad name rejects
// the whole batch without touching the archive.
func parseUploadRequest(
	r *http.Request,
) ([]uploadFile, string) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, "multipart form required"
	}
	if len(r.MultipartForm.File) == 0 {
		return nil, "at least one file part required"
	}

	var files []uploadFile
	for name, headers := range r.MultipartForm.File {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, "file part missing a name"
		}
		if strings.Contains(name, "..") {
			return nil, "invalid filename: " + name
		}
		for _, h := range headers {
			files = append(files, uploadFile{relName: name, header: h})
		}
	}
	// Map iteration order is random; store in a stable order.
	sort.Slice(files, func(i, j int) bool {
		return files[i].relName < files[j].relName
	})
	return files, ""
}

func (s *Server) handleUpload(
	w http.ResponseWriter, r *http.Request,
) {
	files, errMsg := parseUploadRequest(r)
	if errMsg != "" {
		writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	stored := 0
	for _, f := range files {
		src, err := f.header.Open()
		if err != nil {
			s.log.Error().Err(err).Str("name", f.relName).
				Msg("opening upload part")
			writeError(w, http.StatusInternalServerError,
				"failed to read upload")
			return
		}
		err = s.svc.StoreFile(f.relName, src)
		src.Close()
		if err != nil {
			s.log.Error().Err(err).Str("name", f.relName).
				Msg("saving upload")
			writeArchiveError(w, err)
			return
		}
		stored++
	}

	writeJSON(w, http.StatusOK, map[string]int{"stored": stored})
}
