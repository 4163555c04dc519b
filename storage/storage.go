package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"policyassist-backend/config"
)

// ErrNotFound is returned when a key does not exist in the store
var ErrNotFound = errors.New("object not found")

// Storage holds policy source documents under flat keys derived from
// their filenames. Metadata is inferred from the key at ingestion time,
// so keys keep the original base name.
type Storage interface {
	// Put stores data under key, replacing any previous object
	Put(ctx context.Context, key string, data io.Reader) error

	// Open retrieves an object by key
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	Delete(ctx context.Context, key string) error

	// List returns the objects whose key starts with prefix
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Object describes a stored document
type Object struct {
	Key        string
	Size       int64
	ModifiedAt time.Time
}

const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

// New creates a storage backend from configuration
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case TypeLocal:
		return NewLocalStorage(cfg.LocalPath)
	case TypeS3:
		return NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// KeyFor turns an uploaded filename into a storage key. Directory parts
// are dropped and spaces become underscores.
func KeyFor(filename string) (string, error) {
	name := strings.ReplaceAll(filename, "\\", "/")
	name = path.Base(name)
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return name, nil
}

// ContentType determines content type from a key's extension
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
