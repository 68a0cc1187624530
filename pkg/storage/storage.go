// Package storage archives uploaded import files so a problematic batch can
// be re-inspected after the fact.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested file is not in the archive.
var ErrNotFound = errors.New("file not found")

// FileInfo contains metadata about an archived upload.
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Path        string    `json:"path"`
	CreatedAt   time.Time `json:"created_at"`
}

// Archive stores and retrieves uploaded files.
type Archive interface {
	// Save stores a file and returns its metadata.
	Save(ctx context.Context, filename string, contentType string, r io.Reader) (*FileInfo, error)

	// Open retrieves an archived file by its ID.
	Open(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// List returns metadata for every archived file.
	List(ctx context.Context) ([]*FileInfo, error)

	// Delete removes an archived file.
	Delete(ctx context.Context, fileID uuid.UUID) error
}
