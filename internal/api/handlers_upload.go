package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dgallion1/legalens/internal/apperr"
	"github.com/dgallion1/legalens/internal/router"
)

type uploadResponse struct {
	*router.RoutedInput
	Archived string `json:"archived,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apperr.New(apperr.MissingInput, "file is required", ""))
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !router.IsSupportedExtension(filename) {
		writeError(w, apperr.New(apperr.UnsupportedType,
			fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), filename))
		return
	}

	dir, err := os.MkdirTemp("", "legalens-upload-*")
	if err != nil {
		jsonError(w, "failed to stage upload", http.StatusInternalServerError)
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filename)
	n, err := saveFile(path, file, s.cfg.MaxUploadBytes)
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if n > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	routed, err := s.deps.Agent.Route(r.Context(), path)
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Source == path {
			ae.Source = filename
		}
		s.log.Warn("upload.route_failed", "filename", filename, "error", err)
		writeError(w, err)
		return
	}
	routed.Source = filename

	resp := uploadResponse{RoutedInput: routed}
	if s.deps.Storage != nil {
		resp.Archived = s.archive(r.Context(), path, filename)
	}
	writeJSON(w, http.StatusOK, resp)
}

// saveFile copies at most limit+1 bytes of src to path and returns the
// number of bytes written.
func saveFile(path string, src io.Reader, limit int64) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, io.LimitReader(src, limit+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// archive stores the upload and returns its URI, or "" on failure.
func (s *Server) archive(ctx context.Context, path, filename string) string {
	f, err := os.Open(path)
	if err != nil {
		s.log.Warn("upload.archive_failed", "filename", filename, "error", err)
		return ""
	}
	defer f.Close()

	key, err := s.deps.Storage.Upload(ctx, uuid.New(), filename, f)
	if err != nil {
		s.log.Warn("upload.archive_failed", "filename", filename, "error", err)
		return ""
	}
	uri := s.deps.Storage.URI(key)
	s.log.Info("upload.archived", "filename", filename, "uri", uri)
	return uri
}
