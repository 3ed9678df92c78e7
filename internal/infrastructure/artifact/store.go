// Package artifact stores exported map documents on disk and, optionally,
// mirrors them to S3-compatible object storage.
package artifact

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
	"unicode"
)

// Store errors
var (
	ErrInvalidRequest = errors.New("artifact: invalid store request")
	ErrInvalidPath    = errors.New("artifact: invalid path")
	ErrNotFound       = errors.New("artifact: not found")
	ErrStorage        = errors.New("artifact: storage failure")
)

// Store defines how exported documents are kept and served back
type Store interface {
	// Store saves a document and returns where it lives
	Store(ctx context.Context, req *StoreRequest) (*StoreResult, error)
	// Open returns a stored document by its relative path
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes a stored document
	Delete(ctx context.Context, path string) error
	// CleanupOlderThan removes documents older than age
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
	// GetURL returns the download URL of a relative path
	GetURL(path string) string
}

// Mirror receives a copy of every stored document
type Mirror interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// StoreRequest contains a document to store
type StoreRequest struct {
	// Name is the file name, without directories
	Name        string
	ContentType string
	Data        []byte
}

// StoreResult describes a stored document
type StoreResult struct {
	Name string
	// Path is relative to the store base: {yyyy}/{mm}/{name}
	Path        string
	URL         string
	Size        int64
	ContentType string
	// ObjectKey is set when the mirror accepted the upload
	ObjectKey string
}

// SanitizeName makes s usable as a single file name: path separators and
// control characters become "_", and surrounding space and dots are trimmed.
func SanitizeName(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':':
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, s)
	return strings.Trim(mapped, " .")
}

// validName reports whether name is a plain file name
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && SanitizeName(name) == name
}
