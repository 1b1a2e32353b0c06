package httpapi

import (
	"io"
	"net/http"

	"vidsum/internal/apperr"
)

// handleUpload streams the multipart field "file" straight into
// uploadstore.Store.Put without buffering it in a temporary form value.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi:upload"

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, newInvalidArgument(op, "request must be multipart/form-data"))
		return
	}

	var part io.ReadCloser
	var fileName, contentType string
	for {
		p, nextErr := mr.NextPart()
		if nextErr == io.EOF {
			writeError(w, r, newInvalidArgument(op, "missing \"file\" form field"))
			return
		}
		if nextErr != nil {
			writeError(w, r, apperr.Wrap(apperr.KindInvalidArgument, op, "malformed multipart body", nextErr))
			return
		}
		if p.FormName() == "file" {
			part = p
			fileName = p.FileName()
			contentType = p.Header.Get("Content-Type")
			break
		}
		_ = p.Close()
	}
	defer part.Close()

	var declaredSize int64
	sizeKnown := false
	if r.ContentLength > 0 {
		declaredSize, sizeKnown = r.ContentLength, true
	}

	upload, err := s.uploads.Put(r.Context(), part, fileName, declaredSize, sizeKnown, contentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newUploadResponse(upload))
}
