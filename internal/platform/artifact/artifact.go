// Package artifact provides durable blob storage for procedure evidence files
// (before/after images and scanned documents). It defines the Store interface,
// an in-memory implementation suitable for testing and development, and an
// S3-compatible implementation for production.
//
// Callers stage artifacts under candidate paths before opening a database
// transaction and delete them if that transaction does not commit; Delete is
// therefore idempotent and deleting a missing path is not an error.
package artifact

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors.
var (
	ErrNotFound           = errors.New("artifact not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
)

// DefaultMaxSize is the maximum allowed artifact size in bytes (20 MB).
const DefaultMaxSize = 20 * 1024 * 1024

// AllowedContentTypes lists the binary media types accepted for procedure
// evidence uploads.
var AllowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"application/pdf": true,
}

// ValidateUpload checks an upload's declared content type and size against
// the allow-list and size cap. It runs before any byte is staged.
func ValidateUpload(contentType string, size int64, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if !AllowedContentTypes[contentType] {
		return ErrInvalidContentType
	}
	if size > maxSize {
		return ErrFileTooLarge
	}
	return nil
}

// Store is the contract for artifact storage backends. Put is fail-fast: a
// put error aborts the enclosing request before any relational write begins.
// Delete is best-effort during compensation: failures are logged by the
// caller, never escalated.
type Store interface {
	// Put durably writes content under path and returns a URL-like reference.
	// The write is visible to subsequent reads as soon as Put returns.
	Put(ctx context.Context, path string, content io.Reader, contentType string) (string, error)
	// Get returns the artifact content and its content type.
	Get(ctx context.Context, path string) (io.ReadCloser, string, error)
	// Delete removes the artifact at path. Deleting a missing path is not an
	// error.
	Delete(ctx context.Context, path string) error
	// Exists reports whether an artifact is stored under path.
	Exists(ctx context.Context, path string) (bool, error)
	// ReferenceFor returns the URL-like locator for path without any I/O.
	ReferenceFor(path string) string
}
