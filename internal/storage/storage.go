// Package storage archives uploaded documents and build artefacts such as
// the embeddings file.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage is a flat object store.
type Storage interface {
	// Upload stores data and returns its storage path.
	Upload(ctx context.Context, fileID uuid.UUID, filename string, data io.Reader) (string, error)
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storagePath string) error
	// URI renders a storage path for display, e.g. s3://bucket/key.
	URI(storagePath string) string
}

// Type names a storage backend.
type Type string

const (
	TypeNone  Type = "none"
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Type         Type
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// New returns the configured backend, or nil for TypeNone.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeNone, "":
		return nil, nil
	case TypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case TypeS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// generateStoragePath returns a unique, shard-prefixed path for a file.
func generateStoragePath(fileID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filepath.Base(filename), ext)
	baseName = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(baseName)

	id := fileID.String()
	return fmt.Sprintf("%s/%s_%s%s", id[:2], id, baseName, ext)
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".json":
		return "application/json"
	case ".jsonl":
		return "application/x-ndjson"
	default:
		return "application/octet-stream"
	}
}
