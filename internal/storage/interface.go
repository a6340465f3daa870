package storage

import (
	"context"
	"errors"
	"io"
)

var ErrFileNotFound = errors.New("file not found")

// StorageInterface defines the object store used for generated documents.
// Implementations: local filesystem (mock) and a Firebase/GCS bucket.
type StorageInterface interface {
	// Upload stores data under key, replacing any existing object, and returns
	// a URL the document can be retrieved from.
	Upload(ctx context.Context, key string, contentType string, data []byte) (string, error)

	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	// ReadFile opens a stored object for reading
	ReadFile(ctx context.Context, key string) (io.ReadCloser, error)

	// DeleteFile removes a file from storage. Deleting a missing key is not an error.
	DeleteFile(ctx context.Context, key string) error
}
